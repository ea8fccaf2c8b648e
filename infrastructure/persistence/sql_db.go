package persistence

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"channel-insight/infrastructure/configuration"

	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
)

// NewPostgreSQLDB opens the snapshot store on PostgreSQL
func NewPostgreSQLDB() (*sql.DB, error) {
	cfg := configuration.C.Database.Psql

	u := &url.URL{Scheme: "postgres", Host: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port), Path: "/" + cfg.Name}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	q := url.Values{}
	if cfg.Host == "localhost" || cfg.Host == "127.0.0.1" {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()

	return open("postgres", u.String())
}

// NewMSSQLDB opens the snapshot store on Azure SQL / SQL Server
func NewMSSQLDB() (*sql.DB, error) {
	cfg := configuration.C.Database.Mssql

	q := url.Values{}
	if cfg.Name != "" {
		q.Set("database", cfg.Name)
	}
	// Azure SQL requires encrypt=true
	q.Set("encrypt", "true")
	// local containers ship a self-signed certificate
	if cfg.Host == "localhost" || cfg.Host == "127.0.0.1" {
		q.Set("TrustServerCertificate", "true")
	}

	u := &url.URL{Scheme: "sqlserver", Host: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	u.RawQuery = q.Encode()

	return open("sqlserver", u.String())
}

// NewSnapshotDB opens the store selected by Database.Vendor and returns it
// with its dialect name
func NewSnapshotDB() (*sql.DB, string, error) {
	if configuration.C.Database.Vendor == DialectMSSQL {
		db, err := NewMSSQLDB()
		return db, DialectMSSQL, err
	}
	db, err := NewPostgreSQLDB()
	return db, DialectPostgres, err
}

func open(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(20 * time.Second)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
