package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/idempay/internal/models"
)

// PostgresStore is the pgx-backed PaymentStore. The payments table carries a
// primary key on idempotency_key, so TryCreate relies on the database's
// uniqueness constraint rather than application-level checking.
type PostgresStore struct {
	Db *pgxpool.Pool
}

func NewPostgresStore(connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresStore{Db: pool}, nil
}

func (s *PostgresStore) Close() {
	s.Db.Close()
}

// TryCreate inserts the record, mapping a unique violation to ErrKeyExists.
func (s *PostgresStore) TryCreate(ctx context.Context, rec *models.PaymentRecord) error {
	_, err := s.Db.Exec(ctx,
		`INSERT INTO payments (idempotency_key, amount, state, request_fingerprint)
		 VALUES ($1, $2, $3, $4)`,
		rec.IdempotencyKey, rec.Amount, rec.State, rec.Fingerprint,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrKeyExists
		}
		return fmt.Errorf("payment insert failed: %w", err)
	}
	return nil
}

// Get retrieves the record for a key.
func (s *PostgresStore) Get(ctx context.Context, key string) (*models.PaymentRecord, error) {
	var rec models.PaymentRecord
	err := s.Db.QueryRow(ctx,
		`SELECT idempotency_key, amount, COALESCE(request_fingerprint, ''), state,
		        COALESCE(transaction_id, ''), COALESCE(response_body, 'null'::jsonb),
		        created_at, updated_at
		 FROM payments WHERE idempotency_key = $1`,
		key,
	).Scan(&rec.IdempotencyKey, &rec.Amount, &rec.Fingerprint, &rec.State,
		&rec.TransactionID, &rec.ResponseBody, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("payment query failed: %w", err)
	}
	if string(rec.ResponseBody) == "null" {
		rec.ResponseBody = nil
	}
	return &rec, nil
}

// MarkProcessing transitions FAILED -> PROCESSING. Conditional on the prior
// state so two retries of the same failed key cannot both win.
func (s *PostgresStore) MarkProcessing(ctx context.Context, key string) error {
	return s.transition(ctx, key,
		`UPDATE payments SET state = $1, updated_at = NOW()
		 WHERE idempotency_key = $2 AND state = $3`,
		models.StateProcessing, key, models.StateFailed)
}

// MarkFailed transitions PROCESSING -> FAILED.
func (s *PostgresStore) MarkFailed(ctx context.Context, key string) error {
	return s.transition(ctx, key,
		`UPDATE payments SET state = $1, updated_at = NOW()
		 WHERE idempotency_key = $2 AND state = $3`,
		models.StateFailed, key, models.StateProcessing)
}

// MarkCompleted transitions PROCESSING -> COMPLETED and persists the
// transaction id and response payload.
func (s *PostgresStore) MarkCompleted(ctx context.Context, key, transactionID string, responseBody []byte) error {
	return s.transition(ctx, key,
		`UPDATE payments
		 SET state = $1, transaction_id = $4, response_body = $5, updated_at = NOW()
		 WHERE idempotency_key = $2 AND state = $3`,
		models.StateCompleted, key, models.StateProcessing, transactionID, responseBody)
}

func (s *PostgresStore) transition(ctx context.Context, key, sql string, args ...interface{}) error {
	tag, err := s.Db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("state update failed for key %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}
