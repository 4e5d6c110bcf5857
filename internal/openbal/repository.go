package openbal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository persists opening-balance state. Read operations run outside an
// explicit transaction; every mutation goes through WithTx so the period lock
// flag is re-checked in the same transaction that performs the write.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetPeriod(ctx context.Context, tenantID, periodID uuid.UUID) (Period, error)
	ListPeriods(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Period, int, error)
	GetBalance(ctx context.Context, tenantID, balanceID uuid.UUID) (Balance, error)
	ListBalances(ctx context.Context, tenantID, periodID uuid.UUID, limit, offset int) ([]Balance, int, error)
	ListDetails(ctx context.Context, tenantID, balanceID uuid.UUID) ([]Detail, error)
	SumDetails(ctx context.Context, tenantID, balanceID uuid.UUID) (debit, credit decimal.Decimal, err error)
	ListDetailedBalances(ctx context.Context, tenantID, periodID uuid.UUID) ([]Balance, error)
	PeriodSummary(ctx context.Context, tenantID, periodID uuid.UUID) (Summary, error)
}

// TxRepository exposes transactional operations. GetPeriodForUpdate takes a
// row lock on the period, serialising lock transitions against mutations.
type TxRepository interface {
	GetPeriodForUpdate(ctx context.Context, tenantID, periodID uuid.UUID) (Period, error)
	InsertPeriod(ctx context.Context, p Period) error
	UpdatePeriod(ctx context.Context, p Period) error
	SetPeriodLock(ctx context.Context, tenantID, periodID, actorID uuid.UUID, locked bool, at time.Time) (Period, error)
	DeletePeriodCascade(ctx context.Context, tenantID, periodID uuid.UUID) error

	UpsertBalance(ctx context.Context, b Balance) (Balance, bool, error)
	GetBalance(ctx context.Context, tenantID, balanceID uuid.UUID) (Balance, error)
	DeleteBalance(ctx context.Context, tenantID, balanceID uuid.UUID) error

	UpsertDetail(ctx context.Context, d Detail) (Detail, bool, error)
	GetDetail(ctx context.Context, tenantID, detailID uuid.UUID) (Detail, error)
	DeleteDetail(ctx context.Context, tenantID, detailID uuid.UUID) error

	SumDetails(ctx context.Context, tenantID, balanceID uuid.UUID) (debit, credit decimal.Decimal, err error)
	ListDetailedBalances(ctx context.Context, tenantID, periodID uuid.UUID) ([]Balance, error)
	PeriodSummary(ctx context.Context, tenantID, periodID uuid.UUID) (Summary, error)
}
