package resultdb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

// Migrations for the result table.
// AUTOINCREMENT (and BIGSERIAL on Postgres) guarantees that ids are never reused, even after deletion.
func Migrations(log logs.Log, driver string) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	if driver == dbh.DriverPostgres {
		migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
			`
		CREATE TABLE result(
			id BIGSERIAL PRIMARY KEY,
			category TEXT NOT NULL,
			payload BYTEA NOT NULL,
			created_at BIGINT
		);
		CREATE INDEX idx_result_category ON result(category);
		`))
	} else {
		migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
			`
		CREATE TABLE result(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category TEXT NOT NULL,
			payload BLOB NOT NULL,
			created_at INT
		);
		CREATE INDEX idx_result_category ON result(category);
		`))
	}

	return migs
}
