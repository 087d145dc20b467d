package models

import (
	"time"

	"bank-ledger/internal/money"
)

type AccountType string

const (
	AccountSavings     AccountType = "SAVINGS"
	AccountChecking    AccountType = "CHECKING"
	AccountCredit      AccountType = "CREDIT"
	AccountMoneyMarket AccountType = "MONEY_MARKET"
	AccountCD          AccountType = "CERTIFICATE_OF_DEPOSIT"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountSavings, AccountChecking, AccountCredit, AccountMoneyMarket, AccountCD:
		return true
	}
	return false
}

// AllowsNegative — может ли баланс счёта уходить в минус.
// Кредитные счета — единственное исключение из правила неотрицательности.
func (t AccountType) AllowsNegative() bool {
	return t == AccountCredit
}

// Account — банковский счёт. Balance хранится в минимальных единицах
// и меняется только через леджер-операции (Apply/Amend/Reverse/Transfer).
type Account struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customer_id"`
	Type       AccountType `json:"type"`
	Balance    int64       `json:"-"`
	Status     string      `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}

type OpenAccountRequest struct {
	CustomerID     string `json:"customer_id"`
	Type           string `json:"type"`
	InitialDeposit string `json:"initial_deposit,omitempty"`
}

type AccountResponse struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Type       string `json:"type"`
	Balance    string `json:"balance"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

func NewAccountResponse(a *Account) AccountResponse {
	return AccountResponse{
		ID:         a.ID,
		CustomerID: a.CustomerID,
		Type:       string(a.Type),
		Balance:    money.Format(a.Balance),
		Status:     a.Status,
		CreatedAt:  a.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

type AccountListResponse struct {
	Accounts []AccountResponse `json:"accounts"`
	Total    int               `json:"total"`
}
