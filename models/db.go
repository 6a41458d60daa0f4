package models

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/drivespace/drivespace/utils"
	"github.com/gofiber/fiber/v2/log"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DatabaseFile is the SQLite file name created inside the data directory.
const DatabaseFile = "drivespace.db"

var db *sql.DB

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// Initialize opens the database and applies all pending migrations.
func Initialize(dataDirectory string) error {
	return InitializeWithMigration(dataDirectory, true)
}

// InitializeWithMigration opens <dataDirectory>/drivespace.db. When migrate is
// true all pending migrations are applied.
func InitializeWithMigration(dataDirectory string, migrate bool) error {
	start := time.Now()
	defer utils.LogDuration("InitializeWithMigration", start, dataDirectory)

	if err := os.MkdirAll(dataDirectory, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	databasePath := filepath.Join(dataDirectory, DatabaseFile)
	dsn := "file:" + databasePath +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("connect to database: %w", err)
	}
	db = conn
	InvalidateAppConfig()

	if err := ensureMigrationTable(); err != nil {
		return err
	}

	if migrate {
		if err := MigrateUp(0); err != nil {
			return err
		}
	}

	log.Debugf("Database ready at '%s'", databasePath)
	return nil
}

// Close closes the database connection
func Close() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// PingDB checks database connectivity.
func PingDB() error {
	if db == nil {
		return errors.New("database not initialized")
	}
	return db.Ping()
}

// migration is one numbered schema change.
type migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

func ensureMigrationTable() error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// loadMigrations reads the embedded NNNN_name.up.sql / NNNN_name.down.sql pairs.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	byVersion := make(map[int]*migration)
	for _, entry := range entries {
		name := entry.Name()
		var direction string
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			direction = "up"
		case strings.HasSuffix(name, ".down.sql"):
			direction = "down"
		default:
			continue
		}

		prefix, rest, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("malformed migration file name: %s", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("malformed migration version in %s: %w", name, err)
		}

		content, err := fs.ReadFile(fsys, "migrations/"+name)
		if err != nil {
			return nil, err
		}

		m, exists := byVersion[version]
		if !exists {
			m = &migration{Version: version, Name: strings.TrimSuffix(strings.TrimSuffix(rest, ".up.sql"), ".down.sql")}
			byVersion[version] = m
		}
		if direction == "up" {
			m.Up = string(content)
		} else {
			m.Down = string(content)
		}
	}

	migrations := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// CurrentMigrationVersion returns the highest applied migration version, or 0.
func CurrentMigrationVersion() (int, error) {
	var version sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

// LatestMigrationVersion returns the highest version shipped with the binary.
func LatestMigrationVersion() (int, error) {
	migrations, err := loadMigrations(migrationFiles)
	if err != nil {
		return 0, err
	}
	if len(migrations) == 0 {
		return 0, nil
	}
	return migrations[len(migrations)-1].Version, nil
}

// MigrateUp applies pending migrations up to and including target.
// A target of 0 applies everything.
func MigrateUp(target int) error {
	start := time.Now()
	defer utils.LogDuration("MigrateUp", start, target)

	migrations, err := loadMigrations(migrationFiles)
	if err != nil {
		return err
	}
	current, err := CurrentMigrationVersion()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current || (target > 0 && m.Version > target) {
			continue
		}
		if err := applyMigration(m.Version, m.Up, true); err != nil {
			return fmt.Errorf("migration %04d_%s up: %w", m.Version, m.Name, err)
		}
		log.Infof("Applied migration %04d_%s", m.Version, m.Name)
	}
	return nil
}

// MigrateDown rolls back applied migrations with a version above target.
// A target of 0 rolls back everything.
func MigrateDown(target int) error {
	start := time.Now()
	defer utils.LogDuration("MigrateDown", start, target)

	migrations, err := loadMigrations(migrationFiles)
	if err != nil {
		return err
	}
	current, err := CurrentMigrationVersion()
	if err != nil {
		return err
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		if m.Version > current || m.Version <= target {
			continue
		}
		if m.Down == "" {
			return fmt.Errorf("migration %04d_%s has no down script", m.Version, m.Name)
		}
		if err := applyMigration(m.Version, m.Down, false); err != nil {
			return fmt.Errorf("migration %04d_%s down: %w", m.Version, m.Name, err)
		}
		log.Infof("Rolled back migration %04d_%s", m.Version, m.Name)
	}
	return nil
}

func applyMigration(version int, script string, up bool) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(script); err != nil {
		return err
	}

	if up {
		_, err = tx.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, version, time.Now().Unix())
	} else {
		_, err = tx.Exec(`DELETE FROM schema_migrations WHERE version = ?`, version)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}
