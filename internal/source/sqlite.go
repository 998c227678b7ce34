package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/plugsim/internal/errors"
	"codeberg.org/mutker/plugsim/internal/reading"

	_ "github.com/mattn/go-sqlite3"
)

const DefaultTable = "readings"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var requiredColumns = []string{"device_id", "timestamp", "power"}

// SQLiteConfig selects readings from a table with device_id, timestamp
// and power columns
type SQLiteConfig struct {
	Path           string
	Table          string
	Devices        []string
	PerDeviceLimit int
}

func (c SQLiteConfig) Validate() error {
	errFactory := errors.New()

	if c.Path == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "database path is empty")
	}
	if !identifierPattern.MatchString(c.table()) {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value string
		}{
			Field: "table",
			Value: c.Table,
		})
	}

	return nil
}

func (c SQLiteConfig) table() string {
	if c.Table == "" {
		return DefaultTable
	}

	return c.Table
}

type sqliteSource struct {
	db   *sql.DB
	rows *sql.Rows
	mu   sync.Mutex
}

// OpenSQLite opens the database read-only and starts streaming rows in
// insertion order. PerDeviceLimit caps the rows returned per device.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (Source, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, errFactory.Wrap(errors.ErrSourceUnavailable, err)
	}

	db, err := sql.Open("sqlite3", "file:"+cfg.Path+"?mode=ro")
	if err != nil {
		return nil, errFactory.WithData(errors.ErrSourceUnavailable, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := checkTable(ctx, db, cfg.table()); err != nil {
		db.Close()
		return nil, err
	}

	query, args := selectQuery(cfg)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		db.Close()
		return nil, errFactory.WithData(errors.ErrSourceUnavailable, struct {
			Phase string
			SQL   string
			Error string
		}{
			Phase: "query",
			SQL:   query,
			Error: err.Error(),
		})
	}

	return &sqliteSource{db: db, rows: rows}, nil
}

func (s *sqliteSource) Next(_ context.Context) (reading.Reading, error) {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return reading.Reading{}, errFactory.Wrap(errors.ErrSourceRead, err)
		}
		return reading.Reading{}, io.EOF
	}

	var (
		deviceID sql.NullString
		rawTS    any
		power    sql.NullFloat64
	)
	if err := s.rows.Scan(&deviceID, &rawTS, &power); err != nil {
		return reading.Reading{}, errFactory.Wrap(errors.ErrMalformedRow, err)
	}

	if !power.Valid {
		return reading.Reading{}, errFactory.WithData(errors.ErrMalformedRow, struct {
			Device string
			Detail string
		}{
			Device: deviceID.String,
			Detail: "power is NULL",
		})
	}

	ts, err := scanTimestamp(rawTS)
	if err != nil {
		return reading.Reading{}, errFactory.WithData(errors.ErrInvalidTimestamp, struct {
			Device string
			Value  any
		}{
			Device: deviceID.String,
			Value:  rawTS,
		})
	}

	return reading.Reading{
		DeviceID:  deviceID.String,
		Timestamp: ts,
		Power:     power.Float64,
	}, nil
}

func (s *sqliteSource) Close() error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	rowsErr := s.rows.Close()
	if err := s.db.Close(); err != nil {
		return errFactory.Wrap(errors.ErrShutdown, err)
	}
	if rowsErr != nil {
		return errFactory.Wrap(errors.ErrShutdown, rowsErr)
	}

	return nil
}

func selectQuery(cfg SQLiteConfig) (string, []any) {
	var (
		where string
		args  []any
	)

	if len(cfg.Devices) > 0 {
		placeholders := make([]string, len(cfg.Devices))
		for i, d := range cfg.Devices {
			placeholders[i] = "?"
			args = append(args, d)
		}
		where = " WHERE device_id IN (" + strings.Join(placeholders, ", ") + ")"
	}

	if cfg.PerDeviceLimit <= 0 {
		return fmt.Sprintf(`SELECT device_id, timestamp, power FROM %s%s ORDER BY rowid`, cfg.table(), where), args
	}

	args = append(args, cfg.PerDeviceLimit)

	return fmt.Sprintf(`
        SELECT device_id, timestamp, power FROM (
            SELECT device_id, timestamp, power, rowid AS rid,
                   ROW_NUMBER() OVER (PARTITION BY device_id ORDER BY rowid) AS rn
            FROM %s%s
        )
        WHERE rn <= ?
        ORDER BY rid`, cfg.table(), where), args
}

// checkTable verifies the table exists and has the reading columns
func checkTable(ctx context.Context, db *sql.DB, table string) error {
	errFactory := errors.New()

	var exists bool
	err := db.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, table).Scan(&exists)
	if err != nil {
		return errFactory.WithData(errors.ErrSourceUnavailable, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: table,
			Error: err.Error(),
		})
	}
	if !exists {
		return errFactory.WithData(errors.ErrSourceUnavailable, struct {
			Phase string
			Table string
		}{
			Phase: "table_missing",
			Table: table,
		})
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return errFactory.Wrap(errors.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return errFactory.Wrap(errors.ErrSourceUnavailable, err)
		}
		columns[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return errFactory.Wrap(errors.ErrSourceUnavailable, err)
	}

	for _, col := range requiredColumns {
		if !columns[col] {
			return errFactory.WithData(errors.ErrSourceUnavailable, struct {
				Phase  string
				Table  string
				Column string
			}{
				Phase:  "column_missing",
				Table:  table,
				Column: col,
			})
		}
	}

	return nil
}

func scanTimestamp(v any) (time.Time, error) {
	switch ts := v.(type) {
	case time.Time:
		return ts, nil
	case string:
		return ParseTimestamp(ts)
	case []byte:
		return ParseTimestamp(string(ts))
	case int64:
		return time.Unix(ts, 0).UTC(), nil
	case float64:
		sec := int64(ts)
		return time.Unix(sec, int64((ts-float64(sec))*float64(time.Second))).UTC(), nil
	default:
		return time.Time{}, errors.New().WithData(errors.ErrInvalidTimestamp, v)
	}
}
