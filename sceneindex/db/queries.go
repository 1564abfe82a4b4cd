package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Vizzuality/HLS-data-project/model"
	"github.com/venicegeo/geojson-go/geojson"
)

const sceneColumns = `product_id, collection, acquisition_date, cloud_cover, browse_url, assets, ST_AsGeoJSON(bounds)`

const upsertSQL = `
INSERT INTO public.scenes
	(product_id, collection, acquisition_date, cloud_cover, browse_url, assets, bounds)
VALUES
	($1, $2, $3, $4, $5, $6, ST_SetSRID(ST_GeomFromGeoJSON($7), 4326))
ON CONFLICT (product_id) DO UPDATE SET
	collection = EXCLUDED.collection,
	acquisition_date = EXCLUDED.acquisition_date,
	cloud_cover = EXCLUDED.cloud_cover,
	browse_url = EXCLUDED.browse_url,
	assets = EXCLUDED.assets,
	bounds = EXCLUDED.bounds
`

// UpsertScenes writes scenes into the index, replacing rows with the same
// product ID. It returns the number of rows written.
func UpsertScenes(tx *sql.Tx, scenes []model.SceneRecord) (int, error) {
	stmt, err := tx.Prepare(upsertSQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for _, scene := range scenes {
		assets, err := json.Marshal(scene.Assets())
		if err != nil {
			return count, err
		}
		var bounds sql.NullString
		if scene.Geometry != nil {
			data, err := json.Marshal(scene.Geometry)
			if err != nil {
				return count, err
			}
			bounds = sql.NullString{String: string(data), Valid: true}
		}
		if _, err = stmt.Exec(scene.ID, string(scene.Collection), scene.AcquiredDate,
			scene.CloudCover, scene.BrowseURL, string(assets), bounds); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// SearchScenes returns the indexed scenes whose bounds intersect the bbox,
// acquired between the two dates inclusive, oldest first
func SearchScenes(tx *sql.Tx, filter SearchFilter) ([]model.SceneRecord, error) {
	minDate, err := model.ParseDate(filter.MinAcquiredDate)
	if err != nil {
		return nil, err
	}
	maxDate, err := model.ParseDate(filter.MaxAcquiredDate)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(`
		SELECT `+sceneColumns+`
		FROM public.scenes
		WHERE ST_Intersects(bounds, ST_MakeEnvelope($1, $2, $3, $4, 4326))
		AND acquisition_date >= $5 AND acquisition_date < $6
		AND ($7 = '' OR collection = $7)
		ORDER BY acquisition_date, product_id`,
		filter.Bbox[0], filter.Bbox[1], filter.Bbox[2], filter.Bbox[3],
		minDate, maxDate.AddDate(0, 0, 1), filter.Collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenes []model.SceneRecord
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, scene)
	}
	return scenes, rows.Err()
}

// GetSceneByID returns the indexed scene with the given product ID, or
// sql.ErrNoRows
func GetSceneByID(tx *sql.Tx, productID string) (*model.SceneRecord, error) {
	rows, err := tx.Query(`
		SELECT `+sceneColumns+`
		FROM public.scenes
		WHERE product_id=$1
		LIMIT 1`,
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, sql.ErrNoRows
	}

	scene, err := scanScene(rows)
	if err != nil {
		return nil, err
	}
	return &scene, nil
}

func scanScene(rows *sql.Rows) (model.SceneRecord, error) {
	var (
		id, collectionName, browseURL string
		acquired                      time.Time
		cloudCover                    float64
		assetBytes                    []byte
		boundsBytes                   sql.NullString
		geometry                      interface{}
		assets                        map[string]string
	)
	if err := rows.Scan(&id, &collectionName, &acquired, &cloudCover, &browseURL, &assetBytes, &boundsBytes); err != nil {
		return model.SceneRecord{}, err
	}
	collection, err := model.ParseCollection(collectionName)
	if err != nil {
		return model.SceneRecord{}, err
	}
	if len(assetBytes) > 0 {
		if err = json.Unmarshal(assetBytes, &assets); err != nil {
			return model.SceneRecord{}, err
		}
	}
	if boundsBytes.Valid {
		if geometry, err = geojson.Parse([]byte(boundsBytes.String)); err != nil {
			return model.SceneRecord{}, err
		}
	}

	scene := model.NewSceneRecord(id, collection, acquired, geometry, assets)
	scene.CloudCover = cloudCover
	scene.BrowseURL = browseURL
	return scene, nil
}
