package openbal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-suite/openbal/internal/coa"
	"github.com/meridian-suite/openbal/internal/shared"
)

// AuditRecorder persists audit trail entries for period lifecycle events.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the opening-balance lifecycle: periods, balance and
// detail upserts, batch coordination, validation and locking.
type Service struct {
	repo         Repository
	dir          coa.Directory
	logger       *slog.Logger
	audit        AuditRecorder
	now          func() time.Time
	batchTimeout time.Duration
}

// NewService constructs a Service instance.
func NewService(repo Repository, dir coa.Directory, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		dir:          dir,
		logger:       logger,
		now:          time.Now,
		batchTimeout: time.Minute,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithBatchTimeout overrides the overall deadline applied to balance batches.
func (s *Service) WithBatchTimeout(d time.Duration) {
	if d > 0 {
		s.batchTimeout = d
	}
}

// WithAudit enables audit trail recording for period lifecycle events.
func (s *Service) WithAudit(audit AuditRecorder) {
	s.audit = audit
}

// recordAudit writes an audit entry after a committed transition. Audit
// failures are logged, never propagated.
func (s *Service) recordAudit(ctx context.Context, tenantID, actorID uuid.UUID, action string, periodID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "opening_period",
		EntityID: periodID.String(),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

// CreatePeriod opens a new opening-balance period for the tenant. Multiple
// unlocked periods per tenant are permitted; keeping a single active period
// is caller policy.
func (s *Service) CreatePeriod(ctx context.Context, in CreatePeriodInput) (Period, error) {
	if err := in.Validate(); err != nil {
		return Period{}, err
	}
	ts := s.now()
	period := Period{
		ID:          uuid.New(),
		TenantID:    in.TenantID,
		Name:        in.Name,
		OpeningDate: in.OpeningDate,
		Description: in.Description,
		CreatedBy:   in.ActorID,
		UpdatedBy:   in.ActorID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertPeriod(ctx, period)
	})
	if err != nil {
		return Period{}, err
	}
	s.recordAudit(ctx, in.TenantID, in.ActorID, "period.create", period.ID, map[string]any{"name": period.Name})
	return period, nil
}

// GetPeriod loads one period scoped to the tenant.
func (s *Service) GetPeriod(ctx context.Context, tenantID, periodID uuid.UUID) (Period, error) {
	return s.repo.GetPeriod(ctx, tenantID, periodID)
}

// ListPeriods returns the tenant's periods with the total count.
func (s *Service) ListPeriods(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Period, int, error) {
	return s.repo.ListPeriods(ctx, tenantID, limit, offset)
}

// UpdatePeriod mutates name, date or description while the period is unlocked.
func (s *Service) UpdatePeriod(ctx context.Context, tenantID, actorID, periodID uuid.UUID, patch PeriodPatch) (Period, error) {
	if err := patch.Validate(); err != nil {
		return Period{}, err
	}
	var updated Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, tenantID, periodID)
		if err != nil {
			return err
		}
		if period.IsLocked {
			return ErrLocked
		}
		if patch.Name != nil {
			period.Name = *patch.Name
		}
		if patch.OpeningDate != nil {
			period.OpeningDate = *patch.OpeningDate
		}
		if patch.Description != nil {
			period.Description = *patch.Description
		}
		period.UpdatedBy = actorID
		period.UpdatedAt = s.now()
		if err := tx.UpdatePeriod(ctx, period); err != nil {
			return err
		}
		updated = period
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	return updated, nil
}

// DeletePeriod removes an unlocked period together with its balances and
// details in one transaction.
func (s *Service) DeletePeriod(ctx context.Context, tenantID, actorID, periodID uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, tenantID, periodID)
		if err != nil {
			return err
		}
		if period.IsLocked {
			return ErrLocked
		}
		return tx.DeletePeriodCascade(ctx, tenantID, periodID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, tenantID, actorID, "period.delete", periodID, nil)
	return nil
}

// LockPeriod validates the period and flips it to locked. The period row is
// locked first so validation and the transition commit atomically; concurrent
// lock attempts serialise here. Locking an already-locked period is a no-op.
func (s *Service) LockPeriod(ctx context.Context, tenantID, actorID, periodID uuid.UUID) (Period, error) {
	var result Period
	var changed bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, tenantID, periodID)
		if err != nil {
			return err
		}
		if period.IsLocked {
			result = period
			return nil
		}
		validation, err := validatePeriod(ctx, tx, tenantID, periodID)
		if err != nil {
			return err
		}
		if !validation.Valid {
			return &ImbalanceError{Violations: validation.Violations}
		}
		result, err = tx.SetPeriodLock(ctx, tenantID, periodID, actorID, true, s.now())
		changed = err == nil
		return err
	})
	if err != nil {
		return Period{}, err
	}
	if changed {
		s.recordAudit(ctx, tenantID, actorID, "period.lock", periodID, nil)
	}
	return result, nil
}

// UnlockPeriod flips the period back to unlocked. Authorization for this
// transition (administrator role) is enforced by the caller. Idempotent.
func (s *Service) UnlockPeriod(ctx context.Context, tenantID, actorID, periodID uuid.UUID) (Period, error) {
	var result Period
	var changed bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, tenantID, periodID)
		if err != nil {
			return err
		}
		if !period.IsLocked {
			result = period
			return nil
		}
		result, err = tx.SetPeriodLock(ctx, tenantID, periodID, actorID, false, s.now())
		changed = err == nil
		return err
	})
	if err != nil {
		return Period{}, err
	}
	if changed {
		s.recordAudit(ctx, tenantID, actorID, "period.unlock", periodID, nil)
	}
	return result, nil
}

// UpsertBalance creates or updates the balance for the input's uniqueness
// key. Returns advisory warnings such as amounts on the account's unnatural
// side.
func (s *Service) UpsertBalance(ctx context.Context, in UpsertBalanceInput) (Balance, []Warning, error) {
	balance, _, warnings, err := s.upsertBalance(ctx, in)
	return balance, warnings, err
}

func (s *Service) upsertBalance(ctx context.Context, in UpsertBalanceInput) (Balance, bool, []Warning, error) {
	if err := in.Validate(); err != nil {
		return Balance{}, false, nil, err
	}
	entry, err := s.dir.GetAccount(ctx, in.RegimeID, in.AccountNumber)
	if err != nil {
		if errors.Is(err, coa.ErrAccountNotFound) {
			return Balance{}, false, nil, fmt.Errorf("%w: %s", ErrUnknownAccount, in.AccountNumber)
		}
		return Balance{}, false, nil, err
	}
	warnings := naturalSideWarnings(entry, in)

	ts := s.now()
	var out Balance
	var created bool
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, in.TenantID, in.PeriodID)
		if err != nil {
			return err
		}
		if period.IsLocked {
			return ErrLocked
		}
		out, created, err = tx.UpsertBalance(ctx, Balance{
			ID:            uuid.New(),
			TenantID:      in.TenantID,
			PeriodID:      in.PeriodID,
			AccountNumber: in.AccountNumber,
			CurrencyID:    in.CurrencyID,
			Debit:         in.Debit,
			Credit:        in.Credit,
			HasDetails:    in.HasDetails,
			Note:          in.Note,
			CreatedBy:     in.ActorID,
			UpdatedBy:     in.ActorID,
			CreatedAt:     ts,
			UpdatedAt:     ts,
		})
		return err
	})
	if err != nil {
		return Balance{}, false, nil, err
	}
	return out, created, warnings, nil
}

func naturalSideWarnings(entry coa.Entry, in UpsertBalanceInput) []Warning {
	var warnings []Warning
	if entry.Nature == coa.NatureDebit && in.Credit.IsPositive() {
		warnings = append(warnings, Warning{
			Code:    WarnUnnaturalSide,
			Message: fmt.Sprintf("account %s is debit-normal but carries a credit amount", in.AccountNumber),
		})
	}
	if entry.Nature == coa.NatureCredit && in.Debit.IsPositive() {
		warnings = append(warnings, Warning{
			Code:    WarnUnnaturalSide,
			Message: fmt.Sprintf("account %s is credit-normal but carries a debit amount", in.AccountNumber),
		})
	}
	return warnings
}

// DeleteBalance removes one balance and its details while the period is
// unlocked.
func (s *Service) DeleteBalance(ctx context.Context, tenantID, balanceID uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		balance, err := tx.GetBalance(ctx, tenantID, balanceID)
		if err != nil {
			return err
		}
		period, err := tx.GetPeriodForUpdate(ctx, tenantID, balance.PeriodID)
		if err != nil {
			return err
		}
		if period.IsLocked {
			return ErrLocked
		}
		return tx.DeleteBalance(ctx, tenantID, balanceID)
	})
}

// GetBalance loads one balance scoped to the tenant.
func (s *Service) GetBalance(ctx context.Context, tenantID, balanceID uuid.UUID) (Balance, error) {
	return s.repo.GetBalance(ctx, tenantID, balanceID)
}

// ListBalances returns a period's balances with the total count.
func (s *Service) ListBalances(ctx context.Context, tenantID, periodID uuid.UUID, limit, offset int) ([]Balance, int, error) {
	return s.repo.ListBalances(ctx, tenantID, periodID, limit, offset)
}

// ListDetails returns the detail rows of a balance.
func (s *Service) ListDetails(ctx context.Context, tenantID, balanceID uuid.UUID) ([]Detail, error) {
	return s.repo.ListDetails(ctx, tenantID, balanceID)
}

// UpsertDetail creates or updates one detail row. Parent balance totals are
// not recomputed here; the consistency validator verifies them before lock.
func (s *Service) UpsertDetail(ctx context.Context, in UpsertDetailInput) (Detail, error) {
	if err := in.Validate(); err != nil {
		return Detail{}, err
	}
	var out Detail
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = s.upsertDetailTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return Detail{}, err
	}
	return out, nil
}

// upsertDetailTx applies one detail write inside an already-open transaction
// whose period row is expected to be checked by the caller when batching.
func (s *Service) upsertDetailTx(ctx context.Context, tx TxRepository, in UpsertDetailInput) (Detail, error) {
	balance, err := tx.GetBalance(ctx, in.TenantID, in.BalanceID)
	if err != nil {
		return Detail{}, err
	}
	period, err := tx.GetPeriodForUpdate(ctx, in.TenantID, balance.PeriodID)
	if err != nil {
		return Detail{}, err
	}
	if period.IsLocked {
		return Detail{}, ErrLocked
	}

	ts := s.now()
	detail := Detail{
		ID:          in.DetailID,
		TenantID:    in.TenantID,
		BalanceID:   in.BalanceID,
		Dimensions:  in.Dimensions,
		Debit:       in.Debit,
		Credit:      in.Credit,
		Description: in.Description,
		CreatedBy:   in.ActorID,
		UpdatedBy:   in.ActorID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if in.DetailID == uuid.Nil {
		detail.ID = uuid.New()
	} else {
		existing, err := tx.GetDetail(ctx, in.TenantID, in.DetailID)
		if err != nil {
			return Detail{}, err
		}
		if existing.BalanceID != in.BalanceID {
			return Detail{}, ErrNotFound
		}
		detail.CreatedBy = existing.CreatedBy
		detail.CreatedAt = existing.CreatedAt
	}
	out, _, err := tx.UpsertDetail(ctx, detail)
	if err != nil {
		return Detail{}, err
	}
	return out, nil
}

// DeleteDetail removes one detail row while the owning period is unlocked.
func (s *Service) DeleteDetail(ctx context.Context, tenantID, detailID uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		detail, err := tx.GetDetail(ctx, tenantID, detailID)
		if err != nil {
			return err
		}
		balance, err := tx.GetBalance(ctx, tenantID, detail.BalanceID)
		if err != nil {
			return err
		}
		period, err := tx.GetPeriodForUpdate(ctx, tenantID, balance.PeriodID)
		if err != nil {
			return err
		}
		if period.IsLocked {
			return ErrLocked
		}
		return tx.DeleteDetail(ctx, tenantID, detailID)
	})
}

// BatchUpsertBalances applies the items in submission order with upsert
// semantics. The batch is partially tolerant: one item's failure does not
// abort the others, and every failure is reported with its input and reason.
// Items not attempted before the batch deadline are reported with reason
// "timeout"; already-committed items stay committed.
func (s *Service) BatchUpsertBalances(ctx context.Context, tenantID, actorID, periodID uuid.UUID, regimeID string, currencyID uuid.UUID, items []BalanceBatchItem) (BatchResult, error) {
	period, err := s.repo.GetPeriod(ctx, tenantID, periodID)
	if err != nil {
		return BatchResult{}, err
	}
	if period.IsLocked {
		return BatchResult{}, ErrLocked
	}

	batchCtx := ctx
	if s.batchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, s.batchTimeout)
		defer cancel()
	}

	var result BatchResult
	for idx, item := range items {
		if batchCtx.Err() != nil {
			result.Failed = append(result.Failed, BatchFailure{Index: idx, Item: item, Reason: "timeout"})
			continue
		}
		_, created, warnings, err := s.upsertBalance(batchCtx, UpsertBalanceInput{
			TenantID:      tenantID,
			ActorID:       actorID,
			PeriodID:      periodID,
			RegimeID:      regimeID,
			AccountNumber: item.AccountNumber,
			CurrencyID:    currencyID,
			Debit:         item.Debit,
			Credit:        item.Credit,
			HasDetails:    item.HasDetails,
			Note:          item.Note,
		})
		if err != nil {
			reason := err.Error()
			if batchCtx.Err() != nil && errors.Is(err, context.DeadlineExceeded) {
				reason = "timeout"
			}
			result.Failed = append(result.Failed, BatchFailure{Index: idx, Item: item, Reason: reason})
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		result.Warnings = append(result.Warnings, warnings...)
	}
	if len(result.Failed) > 0 && s.logger != nil {
		s.logger.Warn("balance batch completed with failures",
			slog.String("period_id", periodID.String()),
			slog.Int("failed", len(result.Failed)),
			slog.Int("created", result.Created),
			slog.Int("updated", result.Updated))
	}
	return result, nil
}

// BatchUpsertDetails applies up to DetailBatchLimit detail writes for one
// balance as a single all-or-nothing transaction: details are logically one
// sub-ledger entry, so partial success would leave it inconsistent.
func (s *Service) BatchUpsertDetails(ctx context.Context, tenantID, actorID, balanceID uuid.UUID, items []DetailBatchItem) ([]Detail, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: detail batch requires at least one item", ErrValidation)
	}
	if len(items) > DetailBatchLimit {
		return nil, fmt.Errorf("%w: %d items, limit %d", ErrBatchTooLarge, len(items), DetailBatchLimit)
	}

	inputs := make([]UpsertDetailInput, len(items))
	for idx, item := range items {
		in := UpsertDetailInput{
			TenantID:    tenantID,
			ActorID:     actorID,
			BalanceID:   balanceID,
			DetailID:    item.DetailID,
			Dimensions:  item.Dimensions,
			Debit:       item.Debit,
			Credit:      item.Credit,
			Description: item.Description,
		}
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", idx, err)
		}
		inputs[idx] = in
	}

	details := make([]Detail, 0, len(inputs))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, in := range inputs {
			detail, err := s.upsertDetailTx(ctx, tx, in)
			if err != nil {
				return err
			}
			details = append(details, detail)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}
