package coa

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the chart of accounts from Postgres. The table is seeded
// once per regime and never written by this service.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetAccount returns the directory entry for a code within a regime. Level,
// parent and nature are derived from the code rather than stored, so the seed
// table only carries code and display name.
func (r *Repository) GetAccount(ctx context.Context, regimeID, accountNumber string) (Entry, error) {
	if !ValidAccountCode(accountNumber) {
		return Entry{}, ErrAccountNotFound
	}
	var name string
	err := r.pool.QueryRow(ctx,
		`SELECT name FROM coa_accounts WHERE regime_id=$1 AND account_number=$2`,
		regimeID, accountNumber).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrAccountNotFound
		}
		return Entry{}, err
	}
	return Entry{
		RegimeID:      regimeID,
		AccountNumber: accountNumber,
		Name:          name,
		Level:         AccountLevel(accountNumber),
		ParentNumber:  ParentAccountNumber(accountNumber),
		Nature:        AccountNature(accountNumber),
	}, nil
}
