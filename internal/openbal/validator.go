package openbal

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// validationQuerier is the slice of repository reads the validator needs. It
// is satisfied by both Repository and TxRepository so the same checks run
// on demand and inside the lock transaction.
type validationQuerier interface {
	SumDetails(ctx context.Context, tenantID, balanceID uuid.UUID) (debit, credit decimal.Decimal, err error)
	ListDetailedBalances(ctx context.Context, tenantID, periodID uuid.UUID) ([]Balance, error)
	PeriodSummary(ctx context.Context, tenantID, periodID uuid.UUID) (Summary, error)
}

// ValidateBalanceDetails compares a balance's own totals against the sum of
// its detail rows. Balances without details are trivially valid. Comparison
// is exact fixed-point decimal equality; any discrepancy is a violation.
func (s *Service) ValidateBalanceDetails(ctx context.Context, tenantID, balanceID uuid.UUID) (DetailCheck, error) {
	balance, err := s.repo.GetBalance(ctx, tenantID, balanceID)
	if err != nil {
		return DetailCheck{}, err
	}
	return checkBalanceDetails(ctx, s.repo, balance)
}

func checkBalanceDetails(ctx context.Context, q validationQuerier, balance Balance) (DetailCheck, error) {
	check := DetailCheck{
		BalanceID:      balance.ID,
		ExpectedDebit:  balance.Debit,
		ExpectedCredit: balance.Credit,
	}
	if !balance.HasDetails {
		check.Valid = true
		check.ActualDebit = balance.Debit
		check.ActualCredit = balance.Credit
		return check, nil
	}
	debit, credit, err := q.SumDetails(ctx, balance.TenantID, balance.ID)
	if err != nil {
		return DetailCheck{}, err
	}
	check.ActualDebit = debit
	check.ActualCredit = credit
	check.Valid = debit.Equal(balance.Debit) && credit.Equal(balance.Credit)
	return check, nil
}

// ValidatePeriod runs the detail-sum check for every detailed balance in the
// period and the period-wide trial-balance check, returning the union of all
// violations. State is not mutated.
func (s *Service) ValidatePeriod(ctx context.Context, tenantID, periodID uuid.UUID) (PeriodValidation, error) {
	if _, err := s.repo.GetPeriod(ctx, tenantID, periodID); err != nil {
		return PeriodValidation{}, err
	}
	return validatePeriod(ctx, s.repo, tenantID, periodID)
}

func validatePeriod(ctx context.Context, q validationQuerier, tenantID, periodID uuid.UUID) (PeriodValidation, error) {
	var violations []Violation

	balances, err := q.ListDetailedBalances(ctx, tenantID, periodID)
	if err != nil {
		return PeriodValidation{}, err
	}
	for _, balance := range balances {
		check, err := checkBalanceDetails(ctx, q, balance)
		if err != nil {
			return PeriodValidation{}, err
		}
		if check.Valid {
			continue
		}
		id := balance.ID
		violations = append(violations, Violation{
			Kind:           ViolationDetailSum,
			BalanceID:      &id,
			AccountNumber:  balance.AccountNumber,
			ExpectedDebit:  check.ExpectedDebit,
			ActualDebit:    check.ActualDebit,
			ExpectedCredit: check.ExpectedCredit,
			ActualCredit:   check.ActualCredit,
		})
	}

	summary, err := q.PeriodSummary(ctx, tenantID, periodID)
	if err != nil {
		return PeriodValidation{}, err
	}
	if !summary.IsBalanced {
		violations = append(violations, Violation{
			Kind:           ViolationTrialBalance,
			ExpectedDebit:  summary.TotalCredit,
			ActualDebit:    summary.TotalDebit,
			ExpectedCredit: summary.TotalDebit,
			ActualCredit:   summary.TotalCredit,
		})
	}

	return PeriodValidation{Valid: len(violations) == 0, Violations: violations}, nil
}

// GetSummary returns the period's trial balance totals. Details are not
// added in; they are sub-components already reflected in balance totals.
func (s *Service) GetSummary(ctx context.Context, tenantID, periodID uuid.UUID) (Summary, error) {
	if _, err := s.repo.GetPeriod(ctx, tenantID, periodID); err != nil {
		return Summary{}, err
	}
	return s.repo.PeriodSummary(ctx, tenantID, periodID)
}
