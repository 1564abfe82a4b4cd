package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/Vizzuality/HLS-data-project/catalog"
	"github.com/Vizzuality/HLS-data-project/composite"
	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/Vizzuality/HLS-data-project/render"
	"github.com/Vizzuality/HLS-data-project/sceneindex"
	"github.com/Vizzuality/HLS-data-project/sceneindex/db"
	"github.com/Vizzuality/HLS-data-project/util"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSearchResponse = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "HLS.S30.T10SEG.2023150T183921.v2.0",
      "collection": "HLSS30.v2.0",
      "geometry": {"type": "Polygon", "coordinates": [[[-122.5, 37.5], [-122, 37.5], [-122, 38], [-122.5, 38], [-122.5, 37.5]]]},
      "properties": {"datetime": "2023-05-30T18:50:36.512Z", "eo:cloud_cover": 7},
      "assets": {"B02": {"href": "https://data.localhost/S30.B02.tif"}}
    }
  ]
}`

type fakeArchive struct {
	images []model.Image
}

func (a *fakeArchive) Query(ctx context.Context, instrument model.Instrument, start, end time.Time, roi model.RegionOfInterest) ([]model.Image, error) {
	var out []model.Image
	for _, img := range a.images {
		if img.Instrument == instrument {
			out = append(out, img)
		}
	}
	return out, nil
}

func (a *fakeArchive) Mosaic(ctx context.Context, images []model.Image) (model.Image, error) {
	return images[0], nil
}

// clearEnv isolates a test from the environment's configuration
func clearEnv(t *testing.T) {
	for _, name := range []string{util.PORT, util.DATABASE_URL, util.EE_CREDENTIALS, util.CMR_STAC_URL, util.MODEL_SERVER_URL, util.SYNC_FREQUENCY, util.OUTPUT_BUCKET} {
		t.Setenv(name, "")
	}
}

func captureStdout(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	previous := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = previous })
	return &buf
}

func get(t *testing.T, router *mux.Router, path string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", path, strings.NewReader("")))
	return recorder
}

func TestServe_CallsLaunchServer(t *testing.T) {
	clearEnv(t)
	success := make(chan bool, 1)
	launchServerFunc = func(portStr string, router *mux.Router) error { // Mock
		success <- portStr == ":8080"
		return nil
	}
	defer func() { launchServerFunc = launchServer }()

	err := serveAction(nil)

	assert.Nil(t, err)
	select {
	case ok := <-success:
		assert.True(t, ok)
	case <-time.After(time.Second):
		assert.Fail(t, "launchServer not called by serve()")
	}
}

func TestServe_BaseHealthCheckEndpoint(t *testing.T) {
	clearEnv(t)
	cfg, err := util.LoadConfig("")
	require.Nil(t, err)

	router, err := createRouter(context.Background(), cfg, &util.BasicLogContext{})

	require.Nil(t, err)
	assert.Equal(t, "OK", get(t, router, "/").Body.String())
	assert.Equal(t, http.StatusOK, get(t, router, "/metrics").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/composites").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/index/discover").Code)
}

func TestServe_OptionalRoutes(t *testing.T) {
	// Mock
	clearEnv(t)
	conn, mock, err := sqlmock.New()
	require.Nil(t, err)
	defer conn.Close()
	getConnectionProviderFunc = func(*util.Config) db.ConnectionProvider {
		return func(util.LogContext) (*sql.DB, error) { return conn, nil }
	}
	newArchiveFunc = func(context.Context, *util.Config) (composite.Archive, error) {
		return &fakeArchive{images: []model.Image{{ID: "s2", Instrument: model.Sentinel2, Time: time.Date(2023, 6, 2, 8, 0, 0, 0, time.UTC), Members: []string{"s2"}}}}, nil
	}
	defer func() {
		getConnectionProviderFunc = newConnectionProvider
		newArchiveFunc = defaultArchive
	}()
	cfg := &util.Config{DatabaseURL: "postgres://localhost/hls", EECredentials: "key.json"}
	mock.ExpectBegin()
	mock.ExpectQuery("WHERE product_id").WillReturnRows(sqlmock.NewRows([]string{"product_id"}))
	mock.ExpectCommit()

	// Tested code
	router, err := createRouter(context.Background(), cfg, &util.BasicLogContext{})

	// Asserts
	require.Nil(t, err)
	composites := get(t, router, "/composites?bbox=28.1,-16.6,28.6,-16.2&startDate=2023-06-01&endDate=2023-06-05")
	assert.Equal(t, http.StatusOK, composites.Code)
	assert.Contains(t, composites.Body.String(), "2023-06-02")
	assert.Equal(t, http.StatusNotFound, get(t, router, "/index/preview/missing").Code)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestServe_ArchiveError(t *testing.T) {
	clearEnv(t)
	newArchiveFunc = func(context.Context, *util.Config) (composite.Archive, error) {
		return nil, util.NewError(util.Authentication, "bad key")
	}
	defer func() { newArchiveFunc = defaultArchive }()

	_, err := createRouter(context.Background(), &util.Config{EECredentials: "key.json"}, &util.BasicLogContext{})

	assert.True(t, util.IsKind(err, util.Authentication))
}

func TestVersion(t *testing.T) {
	buf := captureStdout(t)

	err := createCliApp().Run([]string{"hls-broker", "version"})

	assert.Nil(t, err)
	assert.Equal(t, Version+"\n", buf.String())
}

func TestSearchCommand(t *testing.T) {
	// Mock
	clearEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stac/LPCLOUD/search", r.URL.Path)
		w.Write([]byte(testSearchResponse))
	}))
	defer server.Close()
	t.Setenv(util.CMR_STAC_URL, server.URL+"/stac")
	buf := captureStdout(t)

	// Tested code
	err := createCliApp().Run([]string{"hls-broker", "search", "--region", "-122.5,37.5,-122,38", "--start", "2023-05-30", "--end", "2023-06-02"})

	// Asserts
	require.Nil(t, err)
	assert.Contains(t, buf.String(), "HLS.S30.T10SEG.2023150T183921.v2.0")
}

func TestSearchCommand_BadRegion(t *testing.T) {
	clearEnv(t)

	err := createCliApp().Run([]string{"hls-broker", "search", "--region", "north", "--start", "2023-05-30", "--end", "2023-06-02"})

	assert.True(t, util.IsKind(err, util.Configuration))
}

func TestCompositeCommand(t *testing.T) {
	// Mock
	clearEnv(t)
	newArchiveFunc = func(context.Context, *util.Config) (composite.Archive, error) {
		return &fakeArchive{images: []model.Image{
			{ID: "l8", Instrument: model.Landsat8, Time: time.Date(2023, 6, 3, 9, 0, 0, 0, time.UTC), Members: []string{"l8"}},
			{ID: "s2", Instrument: model.Sentinel2, Time: time.Date(2023, 6, 3, 8, 0, 0, 0, time.UTC), Members: []string{"s2"}},
		}}, nil
	}
	defer func() { newArchiveFunc = defaultArchive }()
	buf := captureStdout(t)

	// Tested code
	err := createCliApp().Run([]string{"hls-broker", "composite", "--region", "28.1,-16.6,28.6,-16.2", "--start", "2023-06-01", "--end", "2023-06-05"})
	framesErr := createCliApp().Run([]string{"hls-broker", "composite", "--region", "28.1,-16.6,28.6,-16.2", "--start", "2023-06-01", "--end", "2023-06-05", "--frames", t.TempDir()})

	// Asserts
	require.Nil(t, err)
	assert.Equal(t, "2023-06-03\t"+model.Sentinel2.Info().Title+", "+model.Landsat8.Info().Title+"\n", buf.String())
	assert.True(t, util.IsKind(framesErr, util.Configuration))
}

func TestAnimateCommand_UnknownFormat(t *testing.T) {
	clearEnv(t)

	err := createCliApp().Run([]string{"hls-broker", "animate", "--format", "avi"})

	assert.True(t, util.IsKind(err, util.Configuration))
}

type fakeStore struct {
	objects []string
	closed  int
}

func (s *fakeStore) Put(ctx context.Context, name, contentType string, r io.Reader) error {
	s.objects = append(s.objects, name)
	return nil
}

func (s *fakeStore) Close() error {
	s.closed++
	return nil
}

func TestAnimateCommand_PublishesAndClosesStore(t *testing.T) {
	// Mock
	clearEnv(t)
	dir := t.TempDir()
	require.Nil(t, os.MkdirAll(filepath.Join(dir, "maui"), 0755))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "maui", "maui.gif"), []byte("GIF89a"), 0644))
	t.Setenv(util.FFMPEG_PATH, "true")
	t.Setenv(util.OUTPUT_BUCKET, "gs://burn-scars/2023")
	store := &fakeStore{}
	previous := newObjectStoreFunc
	newObjectStoreFunc = func(ctx context.Context, cfg *util.Config, bucket string) (render.ObjectStore, error) {
		assert.Equal(t, "burn-scars", bucket)
		return store, nil
	}
	defer func() { newObjectStoreFunc = previous }()
	buf := captureStdout(t)

	// Tested code
	err := createCliApp().Run([]string{"hls-broker", "animate", "--dir", dir, "--name", "maui", "--format", "gif"})

	// Asserts
	require.Nil(t, err)
	assert.Equal(t, []string{"2023/maui.gif"}, store.objects)
	assert.Equal(t, 1, store.closed)
	assert.Contains(t, buf.String(), "gs://burn-scars/2023/maui.gif")
}

func TestPredictCommand_InvalidBands(t *testing.T) {
	clearEnv(t)

	err := createCliApp().Run([]string{"hls-broker", "predict", "--bands", "0,1,2", "--model-config", "missing.yaml"})

	assert.True(t, util.IsKind(err, util.Configuration))
}

func TestGetDbConnection_NotConfigured(t *testing.T) {
	_, err := getDbConnection(&util.BasicLogContext{}, "")

	assert.True(t, util.IsKind(err, util.Configuration))
}

func TestSyncRouter(t *testing.T) {
	// Mock
	search := func(ctx context.Context, options catalog.SearchOptions) ([]model.SceneRecord, error) {
		return nil, errors.New("catalog unavailable")
	}
	region, err := model.RegionFromBbox("28.1,-16.6,28.6,-16.2")
	require.Nil(t, err)
	syncer := sceneindex.NewSyncer(search, nil, region, time.Hour)
	messages := make(chan string, 5)
	go syncer.SyncWhile(context.Background(), messages, time.Hour)
	defer close(messages)
	router := createSyncRouter(syncer, messages)

	// Tested code
	start := get(t, router, "/sync/start")

	// Asserts
	assert.Contains(t, start.Body.String(), "Begin sync request submitted.")
	assert.Eventually(t, func() bool {
		return strings.Contains(get(t, router, "/sync/").Body.String(), "search failed")
	}, 2*time.Second, 10*time.Millisecond)
}
