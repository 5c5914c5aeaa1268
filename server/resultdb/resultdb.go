package resultdb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

var ErrStorageUnavailable = errors.New("Result storage is unavailable")

// Result is one durable record of a completed inference
type Result struct {
	ID        int64       `gorm:"primaryKey" json:"id"`
	Category  string      `json:"category"`
	Payload   []byte      `json:"payload,omitempty"`
	CreatedAt dbh.IntTime `json:"createdAt"`
}

func (Result) TableName() string {
	return "result"
}

// CategoryCount is the number of results stored under one category
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// ResultDB owns the result table.
// Every operation acquires its own connection from the pool, and releases it before returning.
// Writes are serialized, so ids are handed out in the same order that inserts return.
type ResultDB struct {
	log       logs.Log
	db        *gorm.DB
	writeLock sync.Mutex
}

// Open or create a result DB
func Open(log logs.Log, dbc dbh.DBConfig, flags dbh.DBConnectFlags) (*ResultDB, error) {
	if dbc.Driver == dbh.DriverSqlite {
		if err := os.MkdirAll(filepath.Dir(dbc.Database), 0770); err != nil {
			return nil, fmt.Errorf("Failed to create result database directory: %w", err)
		}
	}
	log.Infof("Opening result DB (%v)", dbc.LogSafeDescription())
	db, err := dbh.OpenDB(log, dbc, Migrations(log, dbc.Driver), flags)
	if err != nil {
		return nil, fmt.Errorf("%w: Failed to open result database: %w", ErrStorageUnavailable, err)
	}
	return &ResultDB{
		log: log,
		db:  db,
	}, nil
}

// Open or create a result DB in an sqlite file
func OpenSqlite(log logs.Log, filename string) (*ResultDB, error) {
	return Open(log, dbh.MakeSqliteConfig(filename), 0)
}

func (r *ResultDB) Close() {
	if sqlDB, err := r.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %v failed: %w", ErrStorageUnavailable, op, err)
}

// Insert appends a new result, and returns its id
func (r *ResultDB) Insert(category string, payload []byte) (int64, error) {
	if payload == nil {
		payload = []byte{}
	}
	res := Result{
		Category:  category,
		Payload:   payload,
		CreatedAt: dbh.MakeIntTime(time.Now()),
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	err := r.db.Connection(func(tx *gorm.DB) error {
		return tx.Create(&res).Error
	})
	if err != nil {
		return 0, unavailable("Insert", err)
	}
	return res.ID, nil
}

// ListDesc returns every result, most recent first
func (r *ResultDB) ListDesc() ([]Result, error) {
	results := []Result{}
	err := r.db.Connection(func(tx *gorm.DB) error {
		return tx.Order("id DESC").Find(&results).Error
	})
	if err != nil {
		return nil, unavailable("List", err)
	}
	return results, nil
}

// ListSummaryDesc is ListDesc with each payload cut down to its first SummaryPayloadBytes,
// which is enough to tell an image from a label list.
func (r *ResultDB) ListSummaryDesc() ([]Result, error) {
	results := []Result{}
	err := r.db.Connection(func(tx *gorm.DB) error {
		// substr works on BLOB in sqlite and on BYTEA in Postgres
		return tx.Select("id, category, created_at, substr(payload, 1, ?) AS payload", SummaryPayloadBytes).Order("id DESC").Find(&results).Error
	})
	if err != nil {
		return nil, unavailable("List", err)
	}
	return results, nil
}

// Length of the payload prefix returned by ListSummaryDesc
const SummaryPayloadBytes = 8

// Get returns (nil, nil) if the result does not exist
func (r *ResultDB) Get(id int64) (*Result, error) {
	results := []Result{}
	err := r.db.Connection(func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Limit(1).Find(&results).Error
	})
	if err != nil {
		return nil, unavailable("Get", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// Delete removes a result. Deleting a result that doesn't exist is not an error.
func (r *ResultDB) Delete(id int64) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	err := r.db.Connection(func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Delete(&Result{}).Error
	})
	if err != nil {
		return unavailable("Delete", err)
	}
	return nil
}

func (r *ResultDB) Count() (int64, error) {
	n := int64(0)
	err := r.db.Connection(func(tx *gorm.DB) error {
		return tx.Model(&Result{}).Count(&n).Error
	})
	if err != nil {
		return 0, unavailable("Count", err)
	}
	return n, nil
}

// CountByCategory returns one entry per category that has at least one result, ordered by category
func (r *ResultDB) CountByCategory() ([]CategoryCount, error) {
	counts := []CategoryCount{}
	err := r.db.Connection(func(tx *gorm.DB) error {
		return tx.Model(&Result{}).Select("category, COUNT(*) AS count").Group("category").Order("category").Scan(&counts).Error
	})
	if err != nil {
		return nil, unavailable("CountByCategory", err)
	}
	return counts, nil
}
