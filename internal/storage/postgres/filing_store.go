// Package postgres provides the Postgres-backed filing store.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/filing-harvester/internal/filing"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// FilingStoreConfig controls the Postgres connection pool used for filings.
type FilingStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// FilingStore implements filing.Store on a pgx connection pool. The pool
// handles all serialization needed for concurrent workers.
type FilingStore struct {
	pool  querier
	table string
}

// NewFilingStore connects a Postgres-backed FilingStore using the provided config.
func NewFilingStore(ctx context.Context, cfg FilingStoreConfig) (*FilingStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "filings"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &FilingStore{pool: pool, table: table}, nil
}

// NewFilingStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewFilingStoreWithPool(pool querier, table string) (*FilingStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "filings"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &FilingStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *FilingStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const filingColumns = `
	id,
	exchange,
	source_id,
	source_url,
	company_id,
	report_date,
	COALESCE(file_extension, ''),
	status,
	COALESCE(storage_key, ''),
	COALESCE(local_path, ''),
	COALESCE(last_error, '')`

// GetFilingsByIDs loads the filings with the given IDs.
func (s *FilingStore) GetFilingsByIDs(ctx context.Context, ids []string) ([]filing.Filing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1)`, filingColumns, s.table)
	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("select filings by ids: %w", err)
	}
	defer rows.Close()
	return scanFilings(rows)
}

// GetPendingFilings returns up to limit filings still awaiting their first attempt.
func (s *FilingStore) GetPendingFilings(ctx context.Context, limit int) ([]filing.Filing, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE status = $1 ORDER BY report_date, id LIMIT $2`,
		filingColumns, s.table,
	)
	rows, err := s.pool.Query(ctx, query, string(filing.StatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("select pending filings: %w", err)
	}
	defer rows.Close()
	return scanFilings(rows)
}

// SetInProgress marks a filing PROCESSING before dispatch.
func (s *FilingStore) SetInProgress(ctx context.Context, id string) error {
	query := fmt.Sprintf(
		`UPDATE %s SET status = $2, updated_at = now() WHERE id = $1`,
		s.table,
	)
	tag, err := s.pool.Exec(ctx, query, id, string(filing.StatusProcessing))
	if err != nil {
		return fmt.Errorf("mark filing in progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("filing %q not found", id)
	}
	return nil
}

// SetTerminalStatus records the outcome of an acquisition attempt. Empty
// strings persist as NULL so the storage-key invariant holds.
func (s *FilingStore) SetTerminalStatus(ctx context.Context, id, localPath, storageKey string, status filing.Status, errMsg string) error {
	query := fmt.Sprintf(`
UPDATE %s SET
	status = $2,
	local_path = NULLIF($3, ''),
	storage_key = NULLIF($4, ''),
	last_error = NULLIF($5, ''),
	updated_at = now()
WHERE id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, id, string(status), localPath, storageKey, errMsg)
	if err != nil {
		return fmt.Errorf("update filing status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("filing %q not found", id)
	}
	return nil
}

func scanFilings(rows pgx.Rows) ([]filing.Filing, error) {
	var out []filing.Filing
	for rows.Next() {
		var fl filing.Filing
		var status string
		if err := rows.Scan(
			&fl.ID,
			&fl.Exchange,
			&fl.SourceID,
			&fl.SourceURL,
			&fl.CompanyID,
			&fl.ReportDate,
			&fl.FileExtension,
			&status,
			&fl.StorageKey,
			&fl.LocalPath,
			&fl.LastError,
		); err != nil {
			return nil, fmt.Errorf("scan filing row: %w", err)
		}
		fl.Status = filing.Status(status)
		out = append(out, fl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filing rows: %w", err)
	}
	return out, nil
}
