package migration

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(Up00001, Down00001)
}

// Up00001 creates the scenes table holding catalog results
func Up00001(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE EXTENSION IF NOT EXISTS postgis;

		CREATE TABLE IF NOT EXISTS public.scenes (
			product_id       text PRIMARY KEY,
			collection       text NOT NULL,
			acquisition_date timestamp with time zone NOT NULL,
			cloud_cover      double precision NOT NULL DEFAULT -1,
			browse_url       text NOT NULL DEFAULT '',
			assets           json NOT NULL DEFAULT '{}',
			bounds           geometry(Geometry, 4326)
		);

		CREATE INDEX IF NOT EXISTS idx_scenes_bounds
		ON public.scenes USING gist
		(bounds);
		`)
	return err
}

// Down00001 undoes the effects of Up00001
func Down00001(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS public.scenes;`)
	return err
}
