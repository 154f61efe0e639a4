package processstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"go-process-table-ui/internal/generator"
	"go-process-table-ui/internal/process"
)

// DefaultSQLiteDSN is a shared in-memory database that lives as long as the
// store stays open.
const DefaultSQLiteDSN = "file:proctable?mode=memory&cache=shared"

// ErrNotGenerated is returned before the first generation is stored.
var ErrNotGenerated = errors.New("no processes generated yet")

// Snapshot is the latest generated table.
type Snapshot struct {
	Records     []process.Record      `json:"records"`
	Params      generator.InputParams `json:"params"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// ServiceStats is a lightweight store health summary.
type ServiceStats struct {
	Driver      string `json:"driver"`
	PingMS      int64  `json:"ping_ms"`
	Processes   int64  `json:"processes"`
	// Generations is the sequence number of the latest generation.
	Generations int64  `json:"generations"`
}

// Store keeps the latest process table in a SQL database.
type Store struct {
	db           *sql.DB
	driver       string
	queryTimeout time.Duration
}

// Open connects with driver "sqlite" or "mysql" and creates the tables.
func Open(driver, dsn string, queryTimeout time.Duration) (*Store, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	dsn = strings.TrimSpace(dsn)
	switch driver {
	case "", "sqlite":
		driver = "sqlite"
		if dsn == "" {
			dsn = DefaultSQLiteDSN
		}
	case "mysql":
		if dsn == "" {
			return nil, errors.New("mysql dsn required")
		}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	for _, stmt := range []string{
		`
CREATE TABLE IF NOT EXISTS processes (
  seq INTEGER NOT NULL PRIMARY KEY,
  process_id VARCHAR(64) NOT NULL,
  arrival_time DOUBLE NOT NULL,
  burst_time DOUBLE NOT NULL,
  priority VARCHAR(64) NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS generations (
  id INTEGER NOT NULL PRIMARY KEY,
  process_count INTEGER NOT NULL,
  arrival_mean DOUBLE NOT NULL,
  arrival_std DOUBLE NOT NULL,
  burst_mean DOUBLE NOT NULL,
  burst_std DOUBLE NOT NULL,
  lambda_priority DOUBLE NOT NULL,
  generated_at BIGINT NOT NULL
);`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &Store{db: db, driver: driver, queryTimeout: queryTimeout}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver is the normalized driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Replace swaps the stored table for records and params in one
// transaction.
func (s *Store) Replace(ctx context.Context, records []process.Record, params generator.InputParams, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM processes`); err != nil {
		return err
	}
	for i, r := range records {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO processes (seq, process_id, arrival_time, burst_time, priority)
VALUES (?, ?, ?, ?, ?)`, i, r.ID, r.ArrivalTime, r.BurstTime, r.Priority); err != nil {
			return err
		}
	}

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM generations`).Scan(&next); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM generations`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO generations (id, process_count, arrival_mean, arrival_std, burst_mean, burst_std, lambda_priority, generated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		next, params.Count, params.ArrivalMean, params.ArrivalStd, params.BurstMean, params.BurstStd, params.LambdaPriority, at.UTC().UnixMilli()); err != nil {
		return err
	}

	return tx.Commit()
}

// Latest returns the stored table, or ErrNotGenerated.
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	out := &Snapshot{}
	var at int64
	err := s.db.QueryRowContext(ctx, `
SELECT process_count, arrival_mean, arrival_std, burst_mean, burst_std, lambda_priority, generated_at
FROM generations
ORDER BY id DESC
LIMIT 1`).Scan(&out.Params.Count, &out.Params.ArrivalMean, &out.Params.ArrivalStd,
		&out.Params.BurstMean, &out.Params.BurstStd, &out.Params.LambdaPriority, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotGenerated
	}
	if err != nil {
		return nil, err
	}
	out.GeneratedAt = time.UnixMilli(at).UTC()

	rows, err := s.db.QueryContext(ctx, `
SELECT process_id, arrival_time, burst_time, priority
FROM processes
ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out.Records = make([]process.Record, 0, out.Params.Count)
	for rows.Next() {
		var r process.Record
		if err := rows.Scan(&r.ID, &r.ArrivalTime, &r.BurstTime, &r.Priority); err != nil {
			return nil, err
		}
		out.Records = append(out.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ServiceStats pings the database and counts stored rows.
func (s *Store) ServiceStats(ctx context.Context) (*ServiceStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return nil, err
	}
	out := &ServiceStats{Driver: s.driver, PingMS: time.Since(start).Milliseconds()}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processes`).Scan(&out.Processes); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM generations`).Scan(&out.Generations); err != nil {
		return nil, err
	}
	return out, nil
}
