package models

import (
	"time"

	"bank-ledger/internal/money"
)

type TransactionType string

const (
	TxDeposit    TransactionType = "DEPOSIT"
	TxWithdrawal TransactionType = "WITHDRAWAL"
	TxTransfer   TransactionType = "TRANSFER"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxTransfer:
		return true
	}
	return false
}

// Нога перевода: перевод записывается двумя связанными проводками
// с общим transfer_id — списание на счёте-источнике и зачисление на
// счёте-получателе.
const (
	LegOut = "out"
	LegIn  = "in"
)

// Transaction — одна проводка по счёту AccountID. Amount всегда
// положительный, знак задаёт Effect().
type Transaction struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"account_id"`
	Type           TransactionType `json:"type"`
	Leg            string          `json:"leg,omitempty"`
	Amount         int64           `json:"-"`
	CounterpartyID string          `json:"counterparty_id,omitempty"`
	TransferID     string          `json:"transfer_id,omitempty"`
	Description    string          `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Effect — подписанный вклад проводки в баланс её счёта.
// Инвариант леджера: balance == сумма Effect() всех проводок счёта.
func (t *Transaction) Effect() int64 {
	switch t.Type {
	case TxWithdrawal:
		return -t.Amount
	case TxTransfer:
		if t.Leg == LegOut {
			return -t.Amount
		}
		return t.Amount
	default:
		return t.Amount
	}
}

// EffectOf — та же арифметика знака для ещё не созданной проводки.
func EffectOf(txType TransactionType, leg string, amount int64) int64 {
	t := Transaction{Type: txType, Leg: leg, Amount: amount}
	return t.Effect()
}

type CreateTransactionRequest struct {
	AccountID   string `json:"account_id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

type AmendTransactionRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

type TransferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
	Description   string `json:"description,omitempty"`
}

type TransactionResponse struct {
	ID             string `json:"id"`
	AccountID      string `json:"account_id"`
	Type           string `json:"type"`
	Leg            string `json:"leg,omitempty"`
	Amount         string `json:"amount"`
	Effect         string `json:"effect"`
	CounterpartyID string `json:"counterparty_id,omitempty"`
	TransferID     string `json:"transfer_id,omitempty"`
	Description    string `json:"description,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func NewTransactionResponse(t *Transaction) TransactionResponse {
	return TransactionResponse{
		ID:             t.ID,
		AccountID:      t.AccountID,
		Type:           string(t.Type),
		Leg:            t.Leg,
		Amount:         money.Format(t.Amount),
		Effect:         money.Format(t.Effect()),
		CounterpartyID: t.CounterpartyID,
		TransferID:     t.TransferID,
		Description:    t.Description,
		CreatedAt:      t.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int                   `json:"total"`
	AccountID    string                `json:"account_id,omitempty"`
}
