package migration

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(Up00002, Down00002)
}

// Up00002 indexes scenes by collection and acquisition date for discovery
func Up00002(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_scenes_collection_date
		ON public.scenes (collection, acquisition_date);`)
	return err
}

// Down00002 undoes the effects of Up00002
func Down00002(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP INDEX IF EXISTS idx_scenes_collection_date;`)
	return err
}
