package pool

import (
	"context"
	"database/sql"
	"fmt"

	// Drivers for the supported adapters.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DBFactory opens dedicated sessions from a database/sql handle whose own
// pooling is disabled, so every Connect is a new physical connection.
type DBFactory struct {
	db *sql.DB
}

// DriverFactory opens driverName with dsn. The handle is not contacted until
// the first Connect.
func DriverFactory(driverName, dsn string) (*DBFactory, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s driver: %w", driverName, err)
	}
	db.SetMaxIdleConns(-1)
	return &DBFactory{db: db}, nil
}

func (f *DBFactory) Connect(ctx context.Context) (PhysicalConn, error) {
	conn, err := f.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	return conn, nil
}

// DB exposes the underlying handle, for example to detect the dialect.
func (f *DBFactory) DB() *sql.DB { return f.db }

// Close closes the underlying handle after every Conn is closed.
func (f *DBFactory) Close() error { return f.db.Close() }
