package storage

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"modernc.org/sqlite"
)

// unicodeLower is registered on every SQLite connection. The built-in LOWER
// only folds ASCII.
const unicodeLower = "ulower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(unicodeLower, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

// SQLiteStorage is the single-file Storage used for local runs and tests.
type SQLiteStorage struct {
	*sqlStorage
}

func NewSQLiteStorage(path string, maxConns int, logger *zap.Logger) (*SQLiteStorage, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if maxConns <= 0 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s, err := newSQLStorage(db, "sqlite", false, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.lower = unicodeLower

	return &SQLiteStorage{sqlStorage: s}, nil
}
