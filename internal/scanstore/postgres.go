package scanstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oriys/snapshotbuilder/internal/domain"
	"github.com/oriys/snapshotbuilder/internal/queueresolver"
)

// PostgresStore is a Store backed by Postgres, grounded on oriys/nova's
// internal/store/postgres.go: a pgxpool.Pool, JSONB payload columns, schema
// creation on connect, pgx.ErrNoRows mapped to the package's not-found
// sentinel.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pool against dsn and ensures the backing schema
// exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	s := &PostgresStore{pool: pool}

	if err := s.pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS processed_scans (
			service_id TEXT NOT NULL,
			git_commit_hash TEXT NOT NULL,
			data JSONB NOT NULL,
			PRIMARY KEY (service_id, git_commit_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS scan_failures (
			service_id TEXT NOT NULL,
			git_commit_hash TEXT NOT NULL,
			error_type TEXT NOT NULL,
			error_message TEXT NOT NULL,
			PRIMARY KEY (service_id, git_commit_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS queue_map (
			queue_name TEXT PRIMARY KEY,
			target_type TEXT NOT NULL,
			target_name TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ProcessedScan(ctx context.Context, serviceID, gitCommitHash string) (*domain.ProcessedScan, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data FROM processed_scans WHERE service_id = $1 AND git_commit_hash = $2
	`, serviceID, gitCommitHash).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get processed scan: %w", err)
	}

	scan := domain.NewProcessedScan()
	if err := json.Unmarshal(data, scan); err != nil {
		return nil, fmt.Errorf("decode processed scan: %w", err)
	}
	return scan, nil
}

func (s *PostgresStore) Failure(ctx context.Context, serviceID, gitCommitHash string) (*domain.FailedServiceInfo, error) {
	var info domain.FailedServiceInfo
	err := s.pool.QueryRow(ctx, `
		SELECT error_type, error_message FROM scan_failures WHERE service_id = $1 AND git_commit_hash = $2
	`, serviceID, gitCommitHash).Scan(&info.ErrorType, &info.ErrorMessage)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scan failure: %w", err)
	}
	info.ServiceID = serviceID
	info.GitCommitHash = gitCommitHash
	return &info, nil
}

// SaveProcessedScan upserts a ProcessedScan, for a standalone ingestion
// step that precedes `build`.
func (s *PostgresStore) SaveProcessedScan(ctx context.Context, serviceID, gitCommitHash string, scan *domain.ProcessedScan) error {
	data, err := json.Marshal(scan)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO processed_scans (service_id, git_commit_hash, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (service_id, git_commit_hash) DO UPDATE SET data = EXCLUDED.data
	`, serviceID, gitCommitHash, data)
	if err != nil {
		return fmt.Errorf("save processed scan: %w", err)
	}
	return nil
}

// SaveFailure upserts a scan-failure record.
func (s *PostgresStore) SaveFailure(ctx context.Context, info *domain.FailedServiceInfo) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scan_failures (service_id, git_commit_hash, error_type, error_message)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (service_id, git_commit_hash) DO UPDATE SET
			error_type = EXCLUDED.error_type, error_message = EXCLUDED.error_message
	`, info.ServiceID, info.GitCommitHash, info.ErrorType, info.ErrorMessage)
	if err != nil {
		return fmt.Errorf("save scan failure: %w", err)
	}
	return nil
}

// Lookup implements queueresolver.QueueMapStore against the queue_map
// table, for the §4.6 DAO resolver variant.
func (s *PostgresStore) Lookup(ctx context.Context, targetType queueresolver.TargetType, lowerName string) (string, bool, error) {
	var queueName string
	err := s.pool.QueryRow(ctx, `
		SELECT queue_name FROM queue_map WHERE target_type = $1 AND lower(target_name) = $2
	`, string(targetType), lowerName).Scan(&queueName)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("queue map lookup: %w", err)
	}
	return queueName, true, nil
}

var _ queueresolver.QueueMapStore = (*PostgresStore)(nil)
