package openbal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-suite/openbal/internal/platform/db"
)

// PgRepository persists opening-balance entities in Postgres.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PgRepository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

type pgTxRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction. Unique violations
// and serialization failures surface as ErrConcurrencyConflict.
func (r *PgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("openbal: repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &pgTxRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return translateConflict(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translateConflict(err)
	}
	return nil
}

func translateConflict(err error) error {
	if db.IsUniqueViolation(err) || db.IsSerializationFailure(err) {
		return ErrConcurrencyConflict
	}
	return err
}

const periodCols = `id, tenant_id, name, opening_date, description, is_locked, created_by, updated_by, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.OpeningDate, &p.Description, &p.IsLocked,
		&p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrNotFound
		}
		return Period{}, err
	}
	return p, nil
}

// GetPeriod loads a period scoped to the tenant.
func (r *PgRepository) GetPeriod(ctx context.Context, tenantID, periodID uuid.UUID) (Period, error) {
	return scanPeriod(r.pool.QueryRow(ctx,
		`SELECT `+periodCols+` FROM opening_periods WHERE tenant_id=$1 AND id=$2`, tenantID, periodID))
}

// ListPeriods returns a tenant's periods newest first, with the total count.
func (r *PgRepository) ListPeriods(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Period, int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+periodCols+` FROM opening_periods WHERE tenant_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, 0, err
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM opening_periods WHERE tenant_id=$1`, tenantID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return periods, total, nil
}

const balanceCols = `id, tenant_id, period_id, account_number, currency_id, debit, credit, has_details, note, created_by, updated_by, created_at, updated_at`

func scanBalance(row pgx.Row) (Balance, error) {
	var b Balance
	err := row.Scan(&b.ID, &b.TenantID, &b.PeriodID, &b.AccountNumber, &b.CurrencyID,
		&b.Debit, &b.Credit, &b.HasDetails, &b.Note, &b.CreatedBy, &b.UpdatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, ErrNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

// GetBalance loads a balance scoped to the tenant.
func (r *PgRepository) GetBalance(ctx context.Context, tenantID, balanceID uuid.UUID) (Balance, error) {
	return scanBalance(r.pool.QueryRow(ctx,
		`SELECT `+balanceCols+` FROM opening_balances WHERE tenant_id=$1 AND id=$2`, tenantID, balanceID))
}

// ListBalances returns a period's balances ordered by account number.
func (r *PgRepository) ListBalances(ctx context.Context, tenantID, periodID uuid.UUID, limit, offset int) ([]Balance, int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+balanceCols+` FROM opening_balances WHERE tenant_id=$1 AND period_id=$2 ORDER BY account_number, currency_id LIMIT $3 OFFSET $4`,
		tenantID, periodID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var balances []Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, 0, err
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM opening_balances WHERE tenant_id=$1 AND period_id=$2`,
		tenantID, periodID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return balances, total, nil
}

const detailCols = `id, tenant_id, balance_id, department_id, cost_item_id, cost_object_id, project_id, sales_order_id, purchase_order_id, sales_contract_id, purchase_contract_id, statistical_code_id, account_object_id, debit, credit, description, created_by, updated_by, created_at, updated_at`

func scanDetail(row pgx.Row) (Detail, error) {
	var d Detail
	err := row.Scan(&d.ID, &d.TenantID, &d.BalanceID,
		&d.Dimensions.DepartmentID, &d.Dimensions.CostItemID, &d.Dimensions.CostObjectID,
		&d.Dimensions.ProjectID, &d.Dimensions.SalesOrderID, &d.Dimensions.PurchaseOrderID,
		&d.Dimensions.SalesContractID, &d.Dimensions.PurchaseContractID,
		&d.Dimensions.StatisticalCodeID, &d.Dimensions.AccountObjectID,
		&d.Debit, &d.Credit, &d.Description, &d.CreatedBy, &d.UpdatedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Detail{}, ErrNotFound
		}
		return Detail{}, err
	}
	return d, nil
}

// ListDetails returns the detail rows of a balance in creation order.
func (r *PgRepository) ListDetails(ctx context.Context, tenantID, balanceID uuid.UUID) ([]Detail, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+detailCols+` FROM opening_balance_details WHERE tenant_id=$1 AND balance_id=$2 ORDER BY created_at, id`,
		tenantID, balanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var details []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// SumDetails aggregates detail debits and credits for a balance.
func (r *PgRepository) SumDetails(ctx context.Context, tenantID, balanceID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	return sumDetails(ctx, r.pool, tenantID, balanceID)
}

// ListDetailedBalances returns the period's balances flagged as having details.
func (r *PgRepository) ListDetailedBalances(ctx context.Context, tenantID, periodID uuid.UUID) ([]Balance, error) {
	return listDetailedBalances(ctx, r.pool, tenantID, periodID)
}

// PeriodSummary aggregates the period's trial balance.
func (r *PgRepository) PeriodSummary(ctx context.Context, tenantID, periodID uuid.UUID) (Summary, error) {
	return periodSummary(ctx, r.pool, tenantID, periodID)
}

// rowQuerier is the subset of pgx shared by pools and transactions.
type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func sumDetails(ctx context.Context, q rowQuerier, tenantID, balanceID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	var debit, credit decimal.Decimal
	err := q.QueryRow(ctx,
		`SELECT COALESCE(SUM(debit),0), COALESCE(SUM(credit),0) FROM opening_balance_details WHERE tenant_id=$1 AND balance_id=$2`,
		tenantID, balanceID).Scan(&debit, &credit)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return debit, credit, nil
}

func listDetailedBalances(ctx context.Context, q rowQuerier, tenantID, periodID uuid.UUID) ([]Balance, error) {
	rows, err := q.Query(ctx,
		`SELECT `+balanceCols+` FROM opening_balances WHERE tenant_id=$1 AND period_id=$2 AND has_details ORDER BY account_number`,
		tenantID, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func periodSummary(ctx context.Context, q rowQuerier, tenantID, periodID uuid.UUID) (Summary, error) {
	var s Summary
	err := q.QueryRow(ctx,
		`SELECT COALESCE(SUM(debit),0), COALESCE(SUM(credit),0), COUNT(*) FROM opening_balances WHERE tenant_id=$1 AND period_id=$2`,
		tenantID, periodID).Scan(&s.TotalDebit, &s.TotalCredit, &s.TotalBalances)
	if err != nil {
		return Summary{}, err
	}
	s.IsBalanced = s.TotalDebit.Equal(s.TotalCredit)
	return s, nil
}

// GetPeriodForUpdate locks the period row for the duration of the transaction.
func (r *pgTxRepository) GetPeriodForUpdate(ctx context.Context, tenantID, periodID uuid.UUID) (Period, error) {
	return scanPeriod(r.tx.QueryRow(ctx,
		`SELECT `+periodCols+` FROM opening_periods WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, periodID))
}

// InsertPeriod creates a period row.
func (r *pgTxRepository) InsertPeriod(ctx context.Context, p Period) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO opening_periods (id, tenant_id, name, opening_date, description, is_locked, created_by, updated_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.TenantID, p.Name, p.OpeningDate, p.Description, p.IsLocked, p.CreatedBy, p.UpdatedBy, p.CreatedAt, p.UpdatedAt)
	return err
}

// UpdatePeriod rewrites mutable period attributes.
func (r *pgTxRepository) UpdatePeriod(ctx context.Context, p Period) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE opening_periods SET name=$3, opening_date=$4, description=$5, updated_by=$6, updated_at=$7
WHERE tenant_id=$1 AND id=$2`,
		p.TenantID, p.ID, p.Name, p.OpeningDate, p.Description, p.UpdatedBy, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPeriodLock flips the lock flag and returns the resulting row.
func (r *pgTxRepository) SetPeriodLock(ctx context.Context, tenantID, periodID, actorID uuid.UUID, locked bool, at time.Time) (Period, error) {
	return scanPeriod(r.tx.QueryRow(ctx,
		`UPDATE opening_periods SET is_locked=$3, updated_by=$4, updated_at=$5
WHERE tenant_id=$1 AND id=$2 RETURNING `+periodCols, tenantID, periodID, locked, actorID, at))
}

// DeletePeriodCascade removes a period and its owned balances and details as
// an explicit fan-out, keeping the operation auditable instead of relying on
// schema-level cascade.
func (r *pgTxRepository) DeletePeriodCascade(ctx context.Context, tenantID, periodID uuid.UUID) error {
	if _, err := r.tx.Exec(ctx,
		`DELETE FROM opening_balance_details d USING opening_balances b
WHERE d.balance_id = b.id AND b.tenant_id=$1 AND b.period_id=$2`, tenantID, periodID); err != nil {
		return err
	}
	if _, err := r.tx.Exec(ctx,
		`DELETE FROM opening_balances WHERE tenant_id=$1 AND period_id=$2`, tenantID, periodID); err != nil {
		return err
	}
	tag, err := r.tx.Exec(ctx,
		`DELETE FROM opening_periods WHERE tenant_id=$1 AND id=$2`, tenantID, periodID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertBalance inserts or updates the row keyed on the uniqueness tuple in a
// single statement, closing the check-then-write race. The second return
// value reports whether a new row was created.
func (r *pgTxRepository) UpsertBalance(ctx context.Context, b Balance) (Balance, bool, error) {
	row := r.tx.QueryRow(ctx,
		`INSERT INTO opening_balances (id, tenant_id, period_id, account_number, currency_id, debit, credit, has_details, note, created_by, updated_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (tenant_id, period_id, account_number, currency_id) DO UPDATE
SET debit=EXCLUDED.debit, credit=EXCLUDED.credit, has_details=EXCLUDED.has_details,
    note=EXCLUDED.note, updated_by=EXCLUDED.updated_by, updated_at=EXCLUDED.updated_at
RETURNING `+balanceCols+`, (xmax = 0) AS inserted`,
		b.ID, b.TenantID, b.PeriodID, b.AccountNumber, b.CurrencyID, b.Debit, b.Credit,
		b.HasDetails, b.Note, b.CreatedBy, b.UpdatedBy, b.CreatedAt, b.UpdatedAt)
	var out Balance
	var inserted bool
	err := row.Scan(&out.ID, &out.TenantID, &out.PeriodID, &out.AccountNumber, &out.CurrencyID,
		&out.Debit, &out.Credit, &out.HasDetails, &out.Note, &out.CreatedBy, &out.UpdatedBy,
		&out.CreatedAt, &out.UpdatedAt, &inserted)
	if err != nil {
		return Balance{}, false, err
	}
	return out, inserted, nil
}

// GetBalance loads a balance inside the transaction.
func (r *pgTxRepository) GetBalance(ctx context.Context, tenantID, balanceID uuid.UUID) (Balance, error) {
	return scanBalance(r.tx.QueryRow(ctx,
		`SELECT `+balanceCols+` FROM opening_balances WHERE tenant_id=$1 AND id=$2`, tenantID, balanceID))
}

// DeleteBalance removes a balance and its details.
func (r *pgTxRepository) DeleteBalance(ctx context.Context, tenantID, balanceID uuid.UUID) error {
	if _, err := r.tx.Exec(ctx,
		`DELETE FROM opening_balance_details WHERE tenant_id=$1 AND balance_id=$2`, tenantID, balanceID); err != nil {
		return err
	}
	tag, err := r.tx.Exec(ctx,
		`DELETE FROM opening_balances WHERE tenant_id=$1 AND id=$2`, tenantID, balanceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertDetail inserts or rewrites a detail row keyed on its id.
func (r *pgTxRepository) UpsertDetail(ctx context.Context, d Detail) (Detail, bool, error) {
	row := r.tx.QueryRow(ctx,
		`INSERT INTO opening_balance_details (id, tenant_id, balance_id, department_id, cost_item_id, cost_object_id, project_id, sales_order_id, purchase_order_id, sales_contract_id, purchase_contract_id, statistical_code_id, account_object_id, debit, credit, description, created_by, updated_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
ON CONFLICT (id) DO UPDATE
SET department_id=EXCLUDED.department_id, cost_item_id=EXCLUDED.cost_item_id,
    cost_object_id=EXCLUDED.cost_object_id, project_id=EXCLUDED.project_id,
    sales_order_id=EXCLUDED.sales_order_id, purchase_order_id=EXCLUDED.purchase_order_id,
    sales_contract_id=EXCLUDED.sales_contract_id, purchase_contract_id=EXCLUDED.purchase_contract_id,
    statistical_code_id=EXCLUDED.statistical_code_id, account_object_id=EXCLUDED.account_object_id,
    debit=EXCLUDED.debit, credit=EXCLUDED.credit, description=EXCLUDED.description,
    updated_by=EXCLUDED.updated_by, updated_at=EXCLUDED.updated_at
RETURNING `+detailCols+`, (xmax = 0) AS inserted`,
		d.ID, d.TenantID, d.BalanceID,
		d.Dimensions.DepartmentID, d.Dimensions.CostItemID, d.Dimensions.CostObjectID,
		d.Dimensions.ProjectID, d.Dimensions.SalesOrderID, d.Dimensions.PurchaseOrderID,
		d.Dimensions.SalesContractID, d.Dimensions.PurchaseContractID,
		d.Dimensions.StatisticalCodeID, d.Dimensions.AccountObjectID,
		d.Debit, d.Credit, d.Description, d.CreatedBy, d.UpdatedBy, d.CreatedAt, d.UpdatedAt)
	var out Detail
	var inserted bool
	err := row.Scan(&out.ID, &out.TenantID, &out.BalanceID,
		&out.Dimensions.DepartmentID, &out.Dimensions.CostItemID, &out.Dimensions.CostObjectID,
		&out.Dimensions.ProjectID, &out.Dimensions.SalesOrderID, &out.Dimensions.PurchaseOrderID,
		&out.Dimensions.SalesContractID, &out.Dimensions.PurchaseContractID,
		&out.Dimensions.StatisticalCodeID, &out.Dimensions.AccountObjectID,
		&out.Debit, &out.Credit, &out.Description, &out.CreatedBy, &out.UpdatedBy,
		&out.CreatedAt, &out.UpdatedAt, &inserted)
	if err != nil {
		return Detail{}, false, err
	}
	return out, inserted, nil
}

// GetDetail loads a detail row inside the transaction.
func (r *pgTxRepository) GetDetail(ctx context.Context, tenantID, detailID uuid.UUID) (Detail, error) {
	return scanDetail(r.tx.QueryRow(ctx,
		`SELECT `+detailCols+` FROM opening_balance_details WHERE tenant_id=$1 AND id=$2`, tenantID, detailID))
}

// DeleteDetail removes one detail row.
func (r *pgTxRepository) DeleteDetail(ctx context.Context, tenantID, detailID uuid.UUID) error {
	tag, err := r.tx.Exec(ctx,
		`DELETE FROM opening_balance_details WHERE tenant_id=$1 AND id=$2`, tenantID, detailID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SumDetails aggregates detail amounts inside the transaction.
func (r *pgTxRepository) SumDetails(ctx context.Context, tenantID, balanceID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	return sumDetails(ctx, r.tx, tenantID, balanceID)
}

// ListDetailedBalances lists detail-flagged balances inside the transaction.
func (r *pgTxRepository) ListDetailedBalances(ctx context.Context, tenantID, periodID uuid.UUID) ([]Balance, error) {
	return listDetailedBalances(ctx, r.tx, tenantID, periodID)
}

// PeriodSummary aggregates the trial balance inside the transaction.
func (r *pgTxRepository) PeriodSummary(ctx context.Context, tenantID, periodID uuid.UUID) (Summary, error) {
	return periodSummary(ctx, r.tx, tenantID, periodID)
}
