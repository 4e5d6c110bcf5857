package openbal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-suite/openbal/internal/coa"
)

// DetailBatchLimit caps the number of items a detail batch may carry.
const DetailBatchLimit = 200

// amountScale is the fixed fractional precision of monetary amounts.
const amountScale = 4

// Period is the time-boxed container for a tenant's opening-balance data.
type Period struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenantId"`
	Name        string     `json:"periodName"`
	OpeningDate time.Time  `json:"openingDate"`
	Description string     `json:"description,omitempty"`
	IsLocked    bool       `json:"isLocked"`
	CreatedBy   uuid.UUID  `json:"createdBy"`
	UpdatedBy   uuid.UUID  `json:"updatedBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Balance is one opening balance row per (tenant, period, account, currency).
type Balance struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenantId"`
	PeriodID      uuid.UUID       `json:"periodId"`
	AccountNumber string          `json:"accountNumber"`
	CurrencyID    uuid.UUID       `json:"currencyId"`
	Debit         decimal.Decimal `json:"debitBalance"`
	Credit        decimal.Decimal `json:"creditBalance"`
	HasDetails    bool            `json:"hasDetails"`
	Note          string          `json:"note,omitempty"`
	CreatedBy     uuid.UUID       `json:"createdBy"`
	UpdatedBy     uuid.UUID       `json:"updatedBy"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Dimensions carries the optional analytic references of a detail row. The
// registries behind these ids are owned by other services; only the opaque
// ids are stored here.
type Dimensions struct {
	DepartmentID       *uuid.UUID `json:"departmentId,omitempty"`
	CostItemID         *uuid.UUID `json:"costItemId,omitempty"`
	CostObjectID       *uuid.UUID `json:"costObjectId,omitempty"`
	ProjectID          *uuid.UUID `json:"projectId,omitempty"`
	SalesOrderID       *uuid.UUID `json:"salesOrderId,omitempty"`
	PurchaseOrderID    *uuid.UUID `json:"purchaseOrderId,omitempty"`
	SalesContractID    *uuid.UUID `json:"salesContractId,omitempty"`
	PurchaseContractID *uuid.UUID `json:"purchaseContractId,omitempty"`
	StatisticalCodeID  *uuid.UUID `json:"statisticalCodeId,omitempty"`
	AccountObjectID    *uuid.UUID `json:"accountObjectId,omitempty"`
}

// Detail is an analytic breakdown row of a balance.
type Detail struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenantId"`
	BalanceID   uuid.UUID       `json:"balanceId"`
	Dimensions  Dimensions      `json:"dimensions"`
	Debit       decimal.Decimal `json:"debitBalance"`
	Credit      decimal.Decimal `json:"creditBalance"`
	Description string          `json:"description,omitempty"`
	CreatedBy   uuid.UUID       `json:"createdBy"`
	UpdatedBy   uuid.UUID       `json:"updatedBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Summary aggregates a period's trial balance.
type Summary struct {
	TotalDebit    decimal.Decimal `json:"totalDebit"`
	TotalCredit   decimal.Decimal `json:"totalCredit"`
	TotalBalances int             `json:"totalBalances"`
	IsBalanced    bool            `json:"isBalanced"`
}

// ViolationKind discriminates validator findings.
type ViolationKind string

const (
	ViolationDetailSum    ViolationKind = "DETAIL_SUM"
	ViolationTrialBalance ViolationKind = "TRIAL_BALANCE"
)

// Violation is one validator finding, structured so callers can show exactly
// which account is out of balance and by how much.
type Violation struct {
	Kind           ViolationKind   `json:"kind"`
	BalanceID      *uuid.UUID      `json:"balanceId,omitempty"`
	AccountNumber  string          `json:"accountNumber,omitempty"`
	ExpectedDebit  decimal.Decimal `json:"expectedDebit"`
	ActualDebit    decimal.Decimal `json:"actualDebit"`
	ExpectedCredit decimal.Decimal `json:"expectedCredit"`
	ActualCredit   decimal.Decimal `json:"actualCredit"`
}

// DetailCheck is the result of validating one balance against its details.
type DetailCheck struct {
	BalanceID      uuid.UUID       `json:"balanceId"`
	Valid          bool            `json:"valid"`
	ExpectedDebit  decimal.Decimal `json:"expectedDebit"`
	ActualDebit    decimal.Decimal `json:"actualDebit"`
	ExpectedCredit decimal.Decimal `json:"expectedCredit"`
	ActualCredit   decimal.Decimal `json:"actualCredit"`
}

// PeriodValidation is the union of all validator findings for a period.
type PeriodValidation struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
}

// Warning is an advisory finding that does not block a write.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WarnUnnaturalSide flags an amount on the side opposite the account's
// natural balance side. Advisory only; clearing accounts legitimately carry
// both sides.
const WarnUnnaturalSide = "UNNATURAL_SIDE"

// Sentinel errors. All are surfaced to callers with enough structure to act
// on; none are swallowed.
var (
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("openbal: validation failed")
	// ErrUnknownAccount indicates the account code is not in the directory.
	ErrUnknownAccount = errors.New("openbal: account not in directory")
	// ErrNotFound indicates the entity does not exist or belongs to another tenant.
	ErrNotFound = errors.New("openbal: not found")
	// ErrLocked indicates a mutation against a locked period.
	ErrLocked = errors.New("openbal: period is locked")
	// ErrBatchTooLarge indicates a detail batch above DetailBatchLimit.
	ErrBatchTooLarge = errors.New("openbal: detail batch exceeds limit")
	// ErrConcurrencyConflict indicates a race the store could not resolve; retry.
	ErrConcurrencyConflict = errors.New("openbal: concurrent update conflict")
)

// ImbalanceError is returned when a lock attempt fails validation. It carries
// the full violation list so users can correct entries without guessing.
type ImbalanceError struct {
	Violations []Violation
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("openbal: period is not balanced (%d violations)", len(e.Violations))
}

// CreatePeriodInput captures fields for a new period.
type CreatePeriodInput struct {
	TenantID    uuid.UUID
	ActorID     uuid.UUID
	Name        string
	OpeningDate time.Time
	Description string
}

// Validate ensures required fields are present.
func (in CreatePeriodInput) Validate() error {
	if in.TenantID == uuid.Nil || in.ActorID == uuid.Nil {
		return fmt.Errorf("%w: tenant and actor required", ErrValidation)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: periodName required", ErrValidation)
	}
	if in.OpeningDate.IsZero() {
		return fmt.Errorf("%w: openingDate required", ErrValidation)
	}
	return nil
}

// PeriodPatch mutates period attributes while unlocked. Nil fields are left
// untouched.
type PeriodPatch struct {
	Name        *string
	OpeningDate *time.Time
	Description *string
}

// Validate rejects patches that would blank required fields.
func (p PeriodPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: periodName cannot be empty", ErrValidation)
	}
	if p.OpeningDate != nil && p.OpeningDate.IsZero() {
		return fmt.Errorf("%w: openingDate cannot be empty", ErrValidation)
	}
	return nil
}

// UpsertBalanceInput captures a single balance write.
type UpsertBalanceInput struct {
	TenantID      uuid.UUID
	ActorID       uuid.UUID
	PeriodID      uuid.UUID
	RegimeID      string
	AccountNumber string
	CurrencyID    uuid.UUID
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	HasDetails    bool
	Note          string
}

// Validate checks shape; directory existence is checked by the service.
func (in UpsertBalanceInput) Validate() error {
	if in.TenantID == uuid.Nil || in.ActorID == uuid.Nil || in.PeriodID == uuid.Nil {
		return fmt.Errorf("%w: tenant, actor and period required", ErrValidation)
	}
	if in.CurrencyID == uuid.Nil {
		return fmt.Errorf("%w: currencyId required", ErrValidation)
	}
	if !coa.ValidAccountCode(in.AccountNumber) {
		return fmt.Errorf("%w: malformed account number %q", ErrValidation, in.AccountNumber)
	}
	if err := validateAmount("debitBalance", in.Debit); err != nil {
		return err
	}
	return validateAmount("creditBalance", in.Credit)
}

// UpsertDetailInput captures a single detail write. A nil DetailID creates a
// new row; a known id updates it in place.
type UpsertDetailInput struct {
	TenantID    uuid.UUID
	ActorID     uuid.UUID
	BalanceID   uuid.UUID
	DetailID    uuid.UUID
	Dimensions  Dimensions
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// Validate checks shape.
func (in UpsertDetailInput) Validate() error {
	if in.TenantID == uuid.Nil || in.ActorID == uuid.Nil || in.BalanceID == uuid.Nil {
		return fmt.Errorf("%w: tenant, actor and balance required", ErrValidation)
	}
	if err := validateAmount("debitBalance", in.Debit); err != nil {
		return err
	}
	return validateAmount("creditBalance", in.Credit)
}

// BalanceBatchItem is one entry of a balance batch.
type BalanceBatchItem struct {
	AccountNumber string          `json:"accountNumber"`
	Debit         decimal.Decimal `json:"debitBalance"`
	Credit        decimal.Decimal `json:"creditBalance"`
	HasDetails    bool            `json:"hasDetails"`
	Note          string          `json:"note,omitempty"`
}

// BatchFailure records one rejected batch item together with its input so the
// caller can retry just the failed subset.
type BatchFailure struct {
	Index  int              `json:"index"`
	Item   BalanceBatchItem `json:"item"`
	Reason string           `json:"reason"`
}

// BatchResult reports the outcome of a partially tolerant balance batch.
// Failures preserve input order.
type BatchResult struct {
	Created  int            `json:"created"`
	Updated  int            `json:"updated"`
	Failed   []BatchFailure `json:"failed"`
	Warnings []Warning      `json:"warnings,omitempty"`
}

// DetailBatchItem is one entry of an all-or-nothing detail batch.
type DetailBatchItem struct {
	DetailID    uuid.UUID       `json:"detailId,omitempty"`
	Dimensions  Dimensions      `json:"dimensions"`
	Debit       decimal.Decimal `json:"debitBalance"`
	Credit      decimal.Decimal `json:"creditBalance"`
	Description string          `json:"description,omitempty"`
}

func validateAmount(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: %s must be non-negative, got %s", ErrValidation, field, d)
	}
	if !d.Truncate(amountScale).Equal(d) {
		return fmt.Errorf("%w: %s exceeds %d decimal places", ErrValidation, field, amountScale)
	}
	return nil
}
