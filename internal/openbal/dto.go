package openbal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-suite/openbal/internal/shared"
)

const dateLayout = "2006-01-02"

type createPeriodRequest struct {
	PeriodName  string `json:"periodName" validate:"required"`
	OpeningDate string `json:"openingDate" validate:"required,datetime=2006-01-02"`
	Description string `json:"description"`
}

type updatePeriodRequest struct {
	PeriodName  *string `json:"periodName"`
	OpeningDate *string `json:"openingDate" validate:"omitempty,datetime=2006-01-02"`
	Description *string `json:"description"`
}

func (req updatePeriodRequest) patch() (PeriodPatch, error) {
	patch := PeriodPatch{
		Name:        req.PeriodName,
		Description: req.Description,
	}
	if req.OpeningDate != nil {
		date, err := time.Parse(dateLayout, *req.OpeningDate)
		if err != nil {
			return PeriodPatch{}, err
		}
		patch.OpeningDate = &date
	}
	return patch, nil
}

type upsertBalanceRequest struct {
	AccountNumber string          `json:"accountNumber" validate:"required,numeric"`
	CurrencyID    uuid.UUID       `json:"currencyId" validate:"required"`
	Debit         decimal.Decimal `json:"debitBalance"`
	Credit        decimal.Decimal `json:"creditBalance"`
	HasDetails    bool            `json:"hasDetails"`
	Note          string          `json:"note"`
}

type balanceBatchRequest struct {
	CurrencyID uuid.UUID          `json:"currencyId" validate:"required"`
	Items      []BalanceBatchItem `json:"items" validate:"required,min=1"`
}

type upsertDetailRequest struct {
	DetailID    *uuid.UUID      `json:"detailId"`
	Dimensions  Dimensions      `json:"dimensions"`
	Debit       decimal.Decimal `json:"debitBalance"`
	Credit      decimal.Decimal `json:"creditBalance"`
	Description string          `json:"description"`
}

// The detail batch size cap is enforced by the service so oversize batches
// surface as BatchTooLargeError rather than a generic validation failure.
type detailBatchRequest struct {
	Items []DetailBatchItem `json:"items" validate:"required,min=1"`
}

type balanceResponse struct {
	Balance  Balance   `json:"balance"`
	Warnings []Warning `json:"warnings,omitempty"`
}

type periodListResponse struct {
	Periods    []Period          `json:"periods"`
	Pagination shared.Pagination `json:"pagination"`
}

type balanceListResponse struct {
	Balances   []Balance         `json:"balances"`
	Pagination shared.Pagination `json:"pagination"`
}

type detailListResponse struct {
	Details []Detail `json:"details"`
}

type detailBatchResponse struct {
	Details []Detail `json:"details"`
}
