package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"notivate/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the configured database for the given driver.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			dbCfg.Username,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
			dbCfg.Params,
		)
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the required tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS user_profiles (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL,
				subscription_tier TEXT NOT NULL DEFAULT 'free',
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS usage_tracking (
				user_id TEXT NOT NULL,
				month TEXT NOT NULL,
				transforms_count INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, month),
				FOREIGN KEY(user_id) REFERENCES user_profiles(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS notes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				title TEXT NOT NULL,
				subject TEXT NOT NULL,
				summary TEXT NOT NULL,
				study_guide TEXT NOT NULL,
				raw_text TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY(user_id) REFERENCES user_profiles(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id, created_at DESC)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS user_profiles (
				id VARCHAR(64) NOT NULL,
				email VARCHAR(255) NOT NULL,
				subscription_tier VARCHAR(32) NOT NULL DEFAULT 'free',
				created_at DATETIME NOT NULL,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS usage_tracking (
				user_id VARCHAR(64) NOT NULL,
				month CHAR(7) NOT NULL,
				transforms_count INT NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, month),
				CONSTRAINT fk_usage_user FOREIGN KEY (user_id) REFERENCES user_profiles(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS notes (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				user_id VARCHAR(64) NOT NULL,
				title VARCHAR(255) NOT NULL,
				subject VARCHAR(255) NOT NULL,
				summary TEXT NOT NULL,
				study_guide MEDIUMTEXT NOT NULL,
				raw_text MEDIUMTEXT NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_notes_user (user_id, created_at),
				CONSTRAINT fk_notes_user FOREIGN KEY (user_id) REFERENCES user_profiles(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
