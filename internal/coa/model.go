package coa

import (
	"context"
	"errors"
)

// Entry is a read-only row in the chart of accounts for one regime.
type Entry struct {
	RegimeID      string `json:"regimeId"`
	AccountNumber string `json:"accountNumber"`
	Name          string `json:"name"`
	Level         int    `json:"level"`
	ParentNumber  string `json:"parentNumber,omitempty"`
	Nature        Nature `json:"nature"`
}

// Directory looks up accounts in a tenant's selected accounting regime.
type Directory interface {
	GetAccount(ctx context.Context, regimeID, accountNumber string) (Entry, error)
}

// ErrAccountNotFound indicates the code does not exist in the regime's chart.
var ErrAccountNotFound = errors.New("coa: account not found")
