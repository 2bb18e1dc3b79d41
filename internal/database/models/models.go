// Package models implements the storage interfaces on top of bun/Postgres.
package models

import (
	"database/sql"
	"errors"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
