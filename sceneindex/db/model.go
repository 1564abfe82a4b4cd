package db

import (
	"database/sql"

	"github.com/Vizzuality/HLS-data-project/util"
)

// ConnectionProvider is a function that can provide a database connection.
type ConnectionProvider func(util.LogContext) (*sql.DB, error)

// SearchFilter narrows SearchScenes. An empty Collection matches both
// collections.
type SearchFilter struct {
	Bbox            [4]float64
	Collection      string
	MinAcquiredDate string
	MaxAcquiredDate string
}
