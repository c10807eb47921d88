package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/termfi/vaultd/internal/domain"
)

// TxStore implements domain.TxHistoryStore using PostgreSQL.
type TxStore struct {
	pool *pgxpool.Pool
}

// NewTxStore creates a new TxStore backed by the given connection pool.
func NewTxStore(pool *pgxpool.Pool) *TxStore {
	return &TxStore{pool: pool}
}

const txSelectCols = `id, handle, kind, account, series_id, amount, outcome,
	message, submitted_at, completed_at`

func scanTxRows(rows pgx.Rows) ([]domain.TxRecord, error) {
	var recs []domain.TxRecord
	for rows.Next() {
		rec, err := scanTxRow(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanTxRow(row pgx.Row) (domain.TxRecord, error) {
	var rec domain.TxRecord
	var amt pgtype.Numeric
	if err := row.Scan(
		&rec.ID, &rec.Handle, &rec.Kind, &rec.Account, &rec.SeriesID,
		&amt, &rec.Outcome, &rec.Message, &rec.SubmittedAt, &rec.CompletedAt,
	); err != nil {
		return domain.TxRecord{}, err
	}
	rec.Amount = numericString(amt)
	return rec, nil
}

// numericString renders a NUMERIC(78,0) column back to the base-unit decimal
// string the domain carries. Amounts are stored without a fractional part,
// so only the exponent shift applies.
func numericString(n pgtype.Numeric) string {
	if !n.Valid || n.Int == nil {
		return "0"
	}
	v := new(big.Int).Set(n.Int)
	if n.Exp > 0 {
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
	}
	return v.String()
}

// Insert persists one finished transaction record.
func (s *TxStore) Insert(ctx context.Context, rec domain.TxRecord) error {
	const query = `
		INSERT INTO tx_history (
			id, handle, kind, account, series_id, amount, outcome,
			message, submitted_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Handle, string(rec.Kind), rec.Account, rec.SeriesID,
		rec.Amount, string(rec.Outcome), rec.Message,
		rec.SubmittedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert tx %s: %w", rec.Handle, err)
	}
	return nil
}

// GetByHandle returns the record for one transaction hash, or
// domain.ErrNotFound.
func (s *TxStore) GetByHandle(ctx context.Context, handle string) (domain.TxRecord, error) {
	query := `SELECT ` + txSelectCols + ` FROM tx_history WHERE handle = $1`
	rec, err := scanTxRow(s.pool.QueryRow(ctx, query, handle))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TxRecord{}, domain.ErrNotFound
		}
		return domain.TxRecord{}, fmt.Errorf("postgres: get tx %s: %w", handle, err)
	}
	return rec, nil
}

// ListByAccount returns the account's history with pagination and optional
// time filtering, most recent first.
func (s *TxStore) ListByAccount(ctx context.Context, account string, opts domain.ListOpts) ([]domain.TxRecord, error) {
	query := `SELECT ` + txSelectCols + ` FROM tx_history WHERE account = $1`
	args := []any{account}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND completed_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND completed_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY completed_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tx by account: %w", err)
	}
	defer rows.Close()

	recs, err := scanTxRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan tx by account: %w", err)
	}
	return recs, nil
}

// ListBefore returns all records completed strictly before the given time
// (for archiving), oldest first.
func (s *TxStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.TxRecord, error) {
	query := `SELECT ` + txSelectCols + ` FROM tx_history WHERE completed_at < $1 ORDER BY completed_at ASC`
	rows, err := s.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tx before: %w", err)
	}
	defer rows.Close()
	return scanTxRows(rows)
}

// DeleteBefore deletes all records completed before the given time. Returns
// the number deleted.
func (s *TxStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tx_history WHERE completed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete tx before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.TxHistoryStore = (*TxStore)(nil)
