package db

import (
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"product_id", "collection", "acquisition_date", "cloud_cover", "browse_url", "assets", "st_asgeojson"}

const footprint = `{"type":"Polygon","coordinates":[[[-156.1,20.5],[-155.9,20.5],[-155.9,20.7],[-156.1,20.7],[-156.1,20.5]]]}`

func mockTx(t *testing.T) (*sql.Tx, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	require.Nil(t, err)
	t.Cleanup(func() { conn.Close() })
	mock.ExpectBegin()
	tx, err := conn.Begin()
	require.Nil(t, err)
	return tx, mock
}

func TestUpsertScenes(t *testing.T) {
	// Mock
	tx, mock := mockTx(t)
	acquired := time.Date(2023, 6, 1, 21, 0, 0, 0, time.UTC)
	scene := model.NewSceneRecord("HLS.S30.T04QGJ.2023152T210921.v2.0", model.HLSS30, acquired, nil, map[string]string{"B02": "https://data/B02.tif"})
	scene.CloudCover = 12
	mock.ExpectPrepare("INSERT INTO public.scenes").
		ExpectExec().
		WithArgs(scene.ID, "HLSS30.v2.0", acquired, 12.0, "", `{"B02":"https://data/B02.tif"}`, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Tested code
	count, err := UpsertScenes(tx, []model.SceneRecord{scene})

	// Asserts
	assert.Nil(t, err)
	assert.Equal(t, 1, count)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestSearchScenes(t *testing.T) {
	// Mock
	tx, mock := mockTx(t)
	acquired := time.Date(2023, 6, 1, 21, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(columns).
		AddRow("HLS.L30.T04QGJ.2023152T205000.v2.0", "HLSL30.v2.0", acquired, 4.0, "https://data/browse.jpg", []byte(`{"B07":"https://data/B07.tif"}`), footprint)
	mock.ExpectQuery("FROM public.scenes").
		WithArgs(-156.1, 20.5, -155.9, 20.7,
			time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 6, 3, 0, 0, 0, 0, time.UTC), "").
		WillReturnRows(rows)

	// Tested code
	scenes, err := SearchScenes(tx, SearchFilter{
		Bbox:            [4]float64{-156.1, 20.5, -155.9, 20.7},
		MinAcquiredDate: "2023-06-01",
		MaxAcquiredDate: "2023-06-02",
	})

	// Asserts
	require.Nil(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, model.HLSL30, scenes[0].Collection)
	assert.Equal(t, 4.0, scenes[0].CloudCover)
	assert.Equal(t, "https://data/browse.jpg", scenes[0].BrowseURL)
	href, ok := scenes[0].Asset("B07")
	assert.True(t, ok)
	assert.Equal(t, "https://data/B07.tif", href)
	assert.NotNil(t, scenes[0].Geometry)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestSearchScenes_BadDate(t *testing.T) {
	tx, _ := mockTx(t)

	_, err := SearchScenes(tx, SearchFilter{MinAcquiredDate: "yesterday", MaxAcquiredDate: "2023-06-02"})

	assert.NotNil(t, err)
}

func TestGetSceneByID(t *testing.T) {
	// Mock
	tx, mock := mockTx(t)
	acquired := time.Date(2023, 6, 1, 21, 0, 0, 0, time.UTC)
	mock.ExpectQuery("WHERE product_id").
		WithArgs("found").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("found", "HLSS30.v2.0", acquired, 1.0, "", []byte(`{}`), nil))
	mock.ExpectQuery("WHERE product_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	// Tested code
	scene, err := GetSceneByID(tx, "found")
	_, missingErr := GetSceneByID(tx, "missing")

	// Asserts
	require.Nil(t, err)
	assert.Equal(t, "found", scene.ID)
	assert.Nil(t, scene.Geometry)
	assert.Equal(t, sql.ErrNoRows, missingErr)
}

func TestGetSceneByID_UnknownCollection(t *testing.T) {
	tx, mock := mockTx(t)
	mock.ExpectQuery("WHERE product_id").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("x", "MOD09GA", time.Now(), 1.0, "", []byte(`{}`), nil))

	_, err := GetSceneByID(tx, "x")

	assert.NotNil(t, err)
}
