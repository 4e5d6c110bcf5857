package openbal

import (
	"context"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-suite/openbal/internal/coa"
)

type memoryRepo struct {
	periods    map[uuid.UUID]Period
	balances   map[uuid.UUID]Balance
	balanceKey map[string]uuid.UUID
	details    map[uuid.UUID]Detail
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		periods:    make(map[uuid.UUID]Period),
		balances:   make(map[uuid.UUID]Balance),
		balanceKey: make(map[string]uuid.UUID),
		details:    make(map[uuid.UUID]Detail),
	}
}

func balanceKey(b Balance) string {
	return b.TenantID.String() + "|" + b.PeriodID.String() + "|" + b.AccountNumber + "|" + b.CurrencyID.String()
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetPeriod(ctx context.Context, tenantID, periodID uuid.UUID) (Period, error) {
	p, ok := r.periods[periodID]
	if !ok || p.TenantID != tenantID {
		return Period{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) ListPeriods(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Period, int, error) {
	var out []Period
	for _, p := range r.periods {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) GetBalance(ctx context.Context, tenantID, balanceID uuid.UUID) (Balance, error) {
	b, ok := r.balances[balanceID]
	if !ok || b.TenantID != tenantID {
		return Balance{}, ErrNotFound
	}
	return b, nil
}

func (r *memoryRepo) ListBalances(ctx context.Context, tenantID, periodID uuid.UUID, limit, offset int) ([]Balance, int, error) {
	var out []Balance
	for _, b := range r.balances {
		if b.TenantID == tenantID && b.PeriodID == periodID {
			out = append(out, b)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) ListDetails(ctx context.Context, tenantID, balanceID uuid.UUID) ([]Detail, error) {
	var out []Detail
	for _, d := range r.details {
		if d.TenantID == tenantID && d.BalanceID == balanceID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memoryRepo) SumDetails(ctx context.Context, tenantID, balanceID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	debit, credit := decimal.Zero, decimal.Zero
	for _, d := range r.details {
		if d.TenantID == tenantID && d.BalanceID == balanceID {
			debit = debit.Add(d.Debit)
			credit = credit.Add(d.Credit)
		}
	}
	return debit, credit, nil
}

func (r *memoryRepo) ListDetailedBalances(ctx context.Context, tenantID, periodID uuid.UUID) ([]Balance, error) {
	var out []Balance
	for _, b := range r.balances {
		if b.TenantID == tenantID && b.PeriodID == periodID && b.HasDetails {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memoryRepo) PeriodSummary(ctx context.Context, tenantID, periodID uuid.UUID) (Summary, error) {
	var s Summary
	s.TotalDebit, s.TotalCredit = decimal.Zero, decimal.Zero
	for _, b := range r.balances {
		if b.TenantID == tenantID && b.PeriodID == periodID {
			s.TotalDebit = s.TotalDebit.Add(b.Debit)
			s.TotalCredit = s.TotalCredit.Add(b.Credit)
			s.TotalBalances++
		}
	}
	s.IsBalanced = s.TotalDebit.Equal(s.TotalCredit)
	return s, nil
}

func (t *memoryTx) GetPeriodForUpdate(ctx context.Context, tenantID, periodID uuid.UUID) (Period, error) {
	return t.repo.GetPeriod(ctx, tenantID, periodID)
}

func (t *memoryTx) InsertPeriod(ctx context.Context, p Period) error {
	t.repo.periods[p.ID] = p
	return nil
}

func (t *memoryTx) UpdatePeriod(ctx context.Context, p Period) error {
	if _, ok := t.repo.periods[p.ID]; !ok {
		return ErrNotFound
	}
	t.repo.periods[p.ID] = p
	return nil
}

func (t *memoryTx) SetPeriodLock(ctx context.Context, tenantID, periodID, actorID uuid.UUID, locked bool, at time.Time) (Period, error) {
	p, err := t.repo.GetPeriod(ctx, tenantID, periodID)
	if err != nil {
		return Period{}, err
	}
	p.IsLocked = locked
	p.UpdatedBy = actorID
	p.UpdatedAt = at
	t.repo.periods[periodID] = p
	return p, nil
}

func (t *memoryTx) DeletePeriodCascade(ctx context.Context, tenantID, periodID uuid.UUID) error {
	if _, err := t.repo.GetPeriod(ctx, tenantID, periodID); err != nil {
		return err
	}
	for id, b := range t.repo.balances {
		if b.TenantID == tenantID && b.PeriodID == periodID {
			for did, d := range t.repo.details {
				if d.BalanceID == id {
					delete(t.repo.details, did)
				}
			}
			delete(t.repo.balanceKey, balanceKey(b))
			delete(t.repo.balances, id)
		}
	}
	delete(t.repo.periods, periodID)
	return nil
}

func (t *memoryTx) UpsertBalance(ctx context.Context, b Balance) (Balance, bool, error) {
	key := balanceKey(b)
	if existingID, ok := t.repo.balanceKey[key]; ok {
		existing := t.repo.balances[existingID]
		existing.Debit = b.Debit
		existing.Credit = b.Credit
		existing.HasDetails = b.HasDetails
		existing.Note = b.Note
		existing.UpdatedBy = b.UpdatedBy
		existing.UpdatedAt = b.UpdatedAt
		t.repo.balances[existingID] = existing
		return existing, false, nil
	}
	t.repo.balances[b.ID] = b
	t.repo.balanceKey[key] = b.ID
	return b, true, nil
}

func (t *memoryTx) GetBalance(ctx context.Context, tenantID, balanceID uuid.UUID) (Balance, error) {
	return t.repo.GetBalance(ctx, tenantID, balanceID)
}

func (t *memoryTx) DeleteBalance(ctx context.Context, tenantID, balanceID uuid.UUID) error {
	b, err := t.repo.GetBalance(ctx, tenantID, balanceID)
	if err != nil {
		return err
	}
	for did, d := range t.repo.details {
		if d.BalanceID == balanceID {
			delete(t.repo.details, did)
		}
	}
	delete(t.repo.balanceKey, balanceKey(b))
	delete(t.repo.balances, balanceID)
	return nil
}

func (t *memoryTx) UpsertDetail(ctx context.Context, d Detail) (Detail, bool, error) {
	_, existed := t.repo.details[d.ID]
	t.repo.details[d.ID] = d
	return d, !existed, nil
}

func (t *memoryTx) GetDetail(ctx context.Context, tenantID, detailID uuid.UUID) (Detail, error) {
	d, ok := t.repo.details[detailID]
	if !ok || d.TenantID != tenantID {
		return Detail{}, ErrNotFound
	}
	return d, nil
}

func (t *memoryTx) DeleteDetail(ctx context.Context, tenantID, detailID uuid.UUID) error {
	if _, err := t.GetDetail(ctx, tenantID, detailID); err != nil {
		return err
	}
	delete(t.repo.details, detailID)
	return nil
}

func (t *memoryTx) SumDetails(ctx context.Context, tenantID, balanceID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	return t.repo.SumDetails(ctx, tenantID, balanceID)
}

func (t *memoryTx) ListDetailedBalances(ctx context.Context, tenantID, periodID uuid.UUID) ([]Balance, error) {
	return t.repo.ListDetailedBalances(ctx, tenantID, periodID)
}

func (t *memoryTx) PeriodSummary(ctx context.Context, tenantID, periodID uuid.UUID) (Summary, error) {
	return t.repo.PeriodSummary(ctx, tenantID, periodID)
}

type stubDirectory struct {
	entries map[string]coa.Entry
}

func newStubDirectory(codes ...string) stubDirectory {
	entries := make(map[string]coa.Entry, len(codes))
	for _, code := range codes {
		entries[code] = coa.Entry{
			RegimeID:      "c200",
			AccountNumber: code,
			Name:          "Account " + code,
			Level:         coa.AccountLevel(code),
			ParentNumber:  coa.ParentAccountNumber(code),
			Nature:        coa.AccountNature(code),
		}
	}
	return stubDirectory{entries: entries}
}

func (d stubDirectory) GetAccount(ctx context.Context, regimeID, accountNumber string) (coa.Entry, error) {
	entry, ok := d.entries[accountNumber]
	if !ok {
		return coa.Entry{}, coa.ErrAccountNotFound
	}
	return entry, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testService(t *testing.T, codes ...string) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	svc := NewService(repo, newStubDirectory(codes...), slog.Default())
	svc.WithNow(func() time.Time {
		return time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	})
	return svc, repo
}

func seedPeriod(t *testing.T, svc *Service, tenantID, actorID uuid.UUID) Period {
	t.Helper()
	period, err := svc.CreatePeriod(context.Background(), CreatePeriodInput{
		TenantID:    tenantID,
		ActorID:     actorID,
		Name:        "FY2026 Opening",
		OpeningDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return period
}

func TestCreatePeriodValidation(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.CreatePeriod(context.Background(), CreatePeriodInput{
		TenantID: uuid.New(),
		ActorID:  uuid.New(),
		Name:     "   ",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpsertBalanceCreateThenUpdate(t *testing.T) {
	svc, _ := testService(t, "111")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)
	currencyID := uuid.New()

	in := UpsertBalanceInput{
		TenantID:      tenantID,
		ActorID:       actorID,
		PeriodID:      period.ID,
		RegimeID:      "c200",
		AccountNumber: "111",
		CurrencyID:    currencyID,
		Debit:         dec("100.5000"),
	}
	first, _, err := svc.UpsertBalance(context.Background(), in)
	require.NoError(t, err)
	require.True(t, first.Debit.Equal(dec("100.5")))

	in.Debit = dec("250")
	second, _, err := svc.UpsertBalance(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.Debit.Equal(dec("250")))

	_, total, err := svc.ListBalances(context.Background(), tenantID, period.ID, 50, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestUpsertBalanceUnknownAccount(t *testing.T) {
	svc, _ := testService(t, "111")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)

	_, _, err := svc.UpsertBalance(context.Background(), UpsertBalanceInput{
		TenantID:      tenantID,
		ActorID:       actorID,
		PeriodID:      period.ID,
		RegimeID:      "c200",
		AccountNumber: "999",
		CurrencyID:    uuid.New(),
		Debit:         dec("1"),
	})
	require.ErrorIs(t, err, ErrUnknownAccount)
}

func TestUpsertBalanceRejectsExcessScale(t *testing.T) {
	svc, _ := testService(t, "111")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)

	_, _, err := svc.UpsertBalance(context.Background(), UpsertBalanceInput{
		TenantID:      tenantID,
		ActorID:       actorID,
		PeriodID:      period.ID,
		RegimeID:      "c200",
		AccountNumber: "111",
		CurrencyID:    uuid.New(),
		Debit:         dec("1.00001"),
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpsertBalanceUnnaturalSideWarning(t *testing.T) {
	svc, _ := testService(t, "131", "331")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)
	currencyID := uuid.New()

	// Receivables are debit-normal; a credit amount is allowed but flagged.
	_, warnings, err := svc.UpsertBalance(context.Background(), UpsertBalanceInput{
		TenantID:      tenantID,
		ActorID:       actorID,
		PeriodID:      period.ID,
		RegimeID:      "c200",
		AccountNumber: "131",
		CurrencyID:    currencyID,
		Credit:        dec("50"),
	})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, WarnUnnaturalSide, warnings[0].Code)

	_, warnings, err = svc.UpsertBalance(context.Background(), UpsertBalanceInput{
		TenantID:      tenantID,
		ActorID:       actorID,
		PeriodID:      period.ID,
		RegimeID:      "c200",
		AccountNumber: "331",
		CurrencyID:    currencyID,
		Credit:        dec("50"),
	})
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestLockPeriodRejectsImbalance(t *testing.T) {
	svc, _ := testService(t, "111")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)

	_, _, err := svc.UpsertBalance(context.Background(), UpsertBalanceInput{
		TenantID:      tenantID,
		ActorID:       actorID,
		PeriodID:      period.ID,
		RegimeID:      "c200",
		AccountNumber: "111",
		CurrencyID:    uuid.New(),
		Debit:         dec("100"),
	})
	require.NoError(t, err)

	_, err = svc.LockPeriod(context.Background(), tenantID, actorID, period.ID)
	var imbalance *ImbalanceError
	require.ErrorAs(t, err, &imbalance)
	require.Len(t, imbalance.Violations, 1)
	require.Equal(t, ViolationTrialBalance, imbalance.Violations[0].Kind)
}

func TestLockPeriodThenMutationsFail(t *testing.T) {
	svc, _ := testService(t, "111", "411")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)
	currencyID := uuid.New()

	for _, in := range []UpsertBalanceInput{
		{AccountNumber: "111", Debit: dec("100")},
		{AccountNumber: "411", Credit: dec("100")},
	} {
		in.TenantID, in.ActorID, in.PeriodID = tenantID, actorID, period.ID
		in.RegimeID, in.CurrencyID = "c200", currencyID
		_, _, err := svc.UpsertBalance(context.Background(), in)
		require.NoError(t, err)
	}

	locked, err := svc.LockPeriod(context.Background(), tenantID, actorID, period.ID)
	require.NoError(t, err)
	require.True(t, locked.IsLocked)
	// The transition is stamped with the service clock, not the database's.
	require.Equal(t, time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC), locked.UpdatedAt)

	// Locking again is a no-op.
	again, err := svc.LockPeriod(context.Background(), tenantID, actorID, period.ID)
	require.NoError(t, err)
	require.True(t, again.IsLocked)

	_, _, err = svc.UpsertBalance(context.Background(), UpsertBalanceInput{
		TenantID:      tenantID,
		ActorID:       actorID,
		PeriodID:      period.ID,
		RegimeID:      "c200",
		AccountNumber: "111",
		CurrencyID:    currencyID,
		Debit:         dec("200"),
	})
	require.ErrorIs(t, err, ErrLocked)

	err = svc.DeletePeriod(context.Background(), tenantID, actorID, period.ID)
	require.ErrorIs(t, err, ErrLocked)

	unlocked, err := svc.UnlockPeriod(context.Background(), tenantID, actorID, period.ID)
	require.NoError(t, err)
	require.False(t, unlocked.IsLocked)

	// Unlocking an unlocked period is a no-op.
	unlocked, err = svc.UnlockPeriod(context.Background(), tenantID, actorID, period.ID)
	require.NoError(t, err)
	require.False(t, unlocked.IsLocked)
}

func TestLockPeriodDetailSumViolation(t *testing.T) {
	svc, _ := testService(t, "131", "411")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)
	currencyID := uuid.New()

	balance, _, err := svc.UpsertBalance(context.Background(), UpsertBalanceInput{
		TenantID:      tenantID,
		ActorID:       actorID,
		PeriodID:      period.ID,
		RegimeID:      "c200",
		AccountNumber: "131",
		CurrencyID:    currencyID,
		Debit:         dec("100"),
		HasDetails:    true,
	})
	require.NoError(t, err)
	_, _, err = svc.UpsertBalance(context.Background(), UpsertBalanceInput{
		TenantID:      tenantID,
		ActorID:       actorID,
		PeriodID:      period.ID,
		RegimeID:      "c200",
		AccountNumber: "411",
		CurrencyID:    currencyID,
		Credit:        dec("100"),
	})
	require.NoError(t, err)

	_, err = svc.UpsertDetail(context.Background(), UpsertDetailInput{
		TenantID:  tenantID,
		ActorID:   actorID,
		BalanceID: balance.ID,
		Debit:     dec("60"),
	})
	require.NoError(t, err)

	_, err = svc.LockPeriod(context.Background(), tenantID, actorID, period.ID)
	var imbalance *ImbalanceError
	require.ErrorAs(t, err, &imbalance)
	require.Len(t, imbalance.Violations, 1)
	require.Equal(t, ViolationDetailSum, imbalance.Violations[0].Kind)
	require.Equal(t, "131", imbalance.Violations[0].AccountNumber)

	// Topping up the details to the exact balance clears the violation.
	_, err = svc.UpsertDetail(context.Background(), UpsertDetailInput{
		TenantID:  tenantID,
		ActorID:   actorID,
		BalanceID: balance.ID,
		Debit:     dec("40"),
	})
	require.NoError(t, err)

	locked, err := svc.LockPeriod(context.Background(), tenantID, actorID, period.ID)
	require.NoError(t, err)
	require.True(t, locked.IsLocked)
}

func TestBatchUpsertBalancesPartialTolerance(t *testing.T) {
	svc, _ := testService(t, "111", "411")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)

	items := []BalanceBatchItem{
		{AccountNumber: "111", Debit: dec("100")},
		{AccountNumber: "999", Debit: dec("50")},
		{AccountNumber: "411", Credit: dec("100")},
	}
	result, err := svc.BatchUpsertBalances(context.Background(), tenantID, actorID, period.ID, "c200", uuid.New(), items)
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)
	require.Equal(t, 0, result.Updated)
	require.Len(t, result.Failed, 1)
	require.Equal(t, 1, result.Failed[0].Index)
	require.Equal(t, "999", result.Failed[0].Item.AccountNumber)

	// Successful items stay committed despite the failure.
	_, total, err := svc.ListBalances(context.Background(), tenantID, period.ID, 50, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
}

func TestBatchUpsertBalancesLockedPeriod(t *testing.T) {
	svc, _ := testService(t, "111")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)

	_, err := svc.LockPeriod(context.Background(), tenantID, actorID, period.ID)
	require.NoError(t, err)

	_, err = svc.BatchUpsertBalances(context.Background(), tenantID, actorID, period.ID, "c200", uuid.New(),
		[]BalanceBatchItem{{AccountNumber: "111", Debit: dec("1")}})
	require.ErrorIs(t, err, ErrLocked)
}

func TestBatchUpsertBalancesDeadline(t *testing.T) {
	svc, _ := testService(t, "111")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)
	svc.WithBatchTimeout(time.Nanosecond)

	items := make([]BalanceBatchItem, 3)
	for i := range items {
		items[i] = BalanceBatchItem{AccountNumber: "111", Debit: dec(strconv.Itoa(i + 1))}
	}
	time.Sleep(time.Millisecond)
	result, err := svc.BatchUpsertBalances(context.Background(), tenantID, actorID, period.ID, "c200", uuid.New(), items)
	require.NoError(t, err)
	require.Len(t, result.Failed, 3)
	for _, failure := range result.Failed {
		require.Equal(t, "timeout", failure.Reason)
	}
}

func TestBatchUpsertDetailsAllOrNothing(t *testing.T) {
	svc, repo := testService(t, "131", "411")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)

	balance, _, err := svc.UpsertBalance(context.Background(), UpsertBalanceInput{
		TenantID:      tenantID,
		ActorID:       actorID,
		PeriodID:      period.ID,
		RegimeID:      "c200",
		AccountNumber: "131",
		CurrencyID:    uuid.New(),
		Debit:         dec("100"),
		HasDetails:    true,
	})
	require.NoError(t, err)

	// A single invalid item rejects the whole batch.
	_, err = svc.BatchUpsertDetails(context.Background(), tenantID, actorID, balance.ID, []DetailBatchItem{
		{Debit: dec("60")},
		{Debit: dec("-1")},
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, repo.details)

	details, err := svc.BatchUpsertDetails(context.Background(), tenantID, actorID, balance.ID, []DetailBatchItem{
		{Debit: dec("60")},
		{Debit: dec("40")},
	})
	require.NoError(t, err)
	require.Len(t, details, 2)
}

func TestBatchUpsertDetailsLimits(t *testing.T) {
	svc, _ := testService(t)
	tenantID, actorID := uuid.New(), uuid.New()

	_, err := svc.BatchUpsertDetails(context.Background(), tenantID, actorID, uuid.New(), nil)
	require.ErrorIs(t, err, ErrValidation)

	oversize := make([]DetailBatchItem, DetailBatchLimit+1)
	_, err = svc.BatchUpsertDetails(context.Background(), tenantID, actorID, uuid.New(), oversize)
	require.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestUpsertDetailUpdatePreservesProvenance(t *testing.T) {
	svc, _ := testService(t, "131")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)

	balance, _, err := svc.UpsertBalance(context.Background(), UpsertBalanceInput{
		TenantID:      tenantID,
		ActorID:       actorID,
		PeriodID:      period.ID,
		RegimeID:      "c200",
		AccountNumber: "131",
		CurrencyID:    uuid.New(),
		Debit:         dec("100"),
		HasDetails:    true,
	})
	require.NoError(t, err)

	created, err := svc.UpsertDetail(context.Background(), UpsertDetailInput{
		TenantID:  tenantID,
		ActorID:   actorID,
		BalanceID: balance.ID,
		Debit:     dec("100"),
	})
	require.NoError(t, err)

	editor := uuid.New()
	updated, err := svc.UpsertDetail(context.Background(), UpsertDetailInput{
		TenantID:  tenantID,
		ActorID:   editor,
		BalanceID: balance.ID,
		DetailID:  created.ID,
		Debit:     dec("80"),
	})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, actorID, updated.CreatedBy)
	require.Equal(t, editor, updated.UpdatedBy)
	require.True(t, updated.Debit.Equal(dec("80")))
}

func TestDeletePeriodCascades(t *testing.T) {
	svc, repo := testService(t, "131")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)

	balance, _, err := svc.UpsertBalance(context.Background(), UpsertBalanceInput{
		TenantID:      tenantID,
		ActorID:       actorID,
		PeriodID:      period.ID,
		RegimeID:      "c200",
		AccountNumber: "131",
		CurrencyID:    uuid.New(),
		Debit:         dec("10"),
		HasDetails:    true,
	})
	require.NoError(t, err)
	_, err = svc.UpsertDetail(context.Background(), UpsertDetailInput{
		TenantID:  tenantID,
		ActorID:   actorID,
		BalanceID: balance.ID,
		Debit:     dec("10"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePeriod(context.Background(), tenantID, actorID, period.ID))
	require.Empty(t, repo.periods)
	require.Empty(t, repo.balances)
	require.Empty(t, repo.details)
}

func TestTenantIsolation(t *testing.T) {
	svc, _ := testService(t, "111")
	tenantID, actorID := uuid.New(), uuid.New()
	period := seedPeriod(t, svc, tenantID, actorID)

	otherTenant := uuid.New()
	_, err := svc.GetPeriod(context.Background(), otherTenant, period.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, _, err = svc.UpsertBalance(context.Background(), UpsertBalanceInput{
		TenantID:      otherTenant,
		ActorID:       actorID,
		PeriodID:      period.ID,
		RegimeID:      "c200",
		AccountNumber: "111",
		CurrencyID:    uuid.New(),
		Debit:         dec("1"),
	})
	require.ErrorIs(t, err, ErrNotFound)
}
