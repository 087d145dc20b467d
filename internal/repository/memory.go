package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bank-ledger/internal/models"
)

// ErrWriteFailed — инжектируемый сбой хранилища для проверки
// свойства "всё или ничего".
var ErrWriteFailed = errors.New("сбой записи хранилища")

// MemoryLedgerStore — in-memory реализация леджер-хранилища.
// Используется в тестах вместо Postgres: один мьютекс сериализует
// операции (аналог строковых блокировок FOR UPDATE), изменения
// готовятся на копиях и публикуются только при успехе всего блока,
// что воспроизводит атомарность SQL-транзакции.
type MemoryLedgerStore struct {
	mu           sync.Mutex
	accounts     map[string]*models.Account
	transactions map[string]*models.Transaction

	failNextWrite bool
	opLog         []string
}

func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		accounts:     make(map[string]*models.Account),
		transactions: make(map[string]*models.Transaction),
	}
}

// AddAccount кладёт счёт в хранилище (подготовка теста).
func (s *MemoryLedgerStore) AddAccount(a models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Status == "" {
		a.Status = "active"
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.accounts[a.ID] = &a
}

// FailNextWrite заставляет следующую мутацию упасть на шаге записи
// баланса — после того как проводка уже подготовлена.
func (s *MemoryLedgerStore) FailNextWrite() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextWrite = true
}

// OpLog возвращает список зафиксированных операций.
func (s *MemoryLedgerStore) OpLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.opLog))
	copy(out, s.opLog)
	return out
}

func (s *MemoryLedgerStore) consumeFailure() bool {
	if s.failNextWrite {
		s.failNextWrite = false
		return true
	}
	return false
}

func (s *MemoryLedgerStore) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	snapshot := *a
	return &snapshot, nil
}

func (s *MemoryLedgerStore) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	snapshot := *t
	return &snapshot, nil
}

func (s *MemoryLedgerStore) ListByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for _, t := range s.transactions {
		if t.AccountID == accountID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryLedgerStore) checkDelta(a *models.Account, delta int64) error {
	if a.Balance+delta < 0 && !a.Type.AllowsNegative() {
		return ErrInsufficientBalance
	}
	return nil
}

func (s *MemoryLedgerStore) Apply(
	ctx context.Context,
	accountID string,
	txType models.TransactionType,
	amount int64,
	description string,
) (*models.Transaction, *models.Account, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, nil, ErrAccountNotFound
	}
	if account.Status != "active" {
		return nil, nil, ErrAccountClosed
	}

	staged := &models.Transaction{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		Type:        txType,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now(),
	}

	delta := staged.Effect()
	if err := s.checkDelta(account, delta); err != nil {
		return nil, nil, err
	}
	if s.consumeFailure() {
		return nil, nil, ErrWriteFailed
	}

	account.Balance += delta
	s.transactions[staged.ID] = staged
	s.opLog = append(s.opLog, "apply:"+staged.ID)

	txSnap, accSnap := *staged, *account
	return &txSnap, &accSnap, nil
}

func (s *MemoryLedgerStore) Transfer(
	ctx context.Context,
	fromAccountID, toAccountID string,
	amount int64,
	description string,
) (*models.Transaction, *models.Account, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.accounts[fromAccountID]
	if !ok {
		return nil, nil, ErrAccountNotFound
	}
	to, ok := s.accounts[toAccountID]
	if !ok {
		return nil, nil, ErrAccountNotFound
	}
	if from.Status != "active" || to.Status != "active" {
		return nil, nil, ErrAccountClosed
	}

	if err := s.checkDelta(from, -amount); err != nil {
		return nil, nil, err
	}
	if s.consumeFailure() {
		return nil, nil, ErrWriteFailed
	}

	transferID := uuid.New().String()
	now := time.Now()
	outLeg := &models.Transaction{
		ID:             uuid.New().String(),
		AccountID:      fromAccountID,
		Type:           models.TxTransfer,
		Leg:            models.LegOut,
		Amount:         amount,
		CounterpartyID: toAccountID,
		TransferID:     transferID,
		Description:    description,
		CreatedAt:      now,
	}
	inLeg := &models.Transaction{
		ID:             uuid.New().String(),
		AccountID:      toAccountID,
		Type:           models.TxTransfer,
		Leg:            models.LegIn,
		Amount:         amount,
		CounterpartyID: fromAccountID,
		TransferID:     transferID,
		Description:    description,
		CreatedAt:      now,
	}

	from.Balance -= amount
	to.Balance += amount
	s.transactions[outLeg.ID] = outLeg
	s.transactions[inLeg.ID] = inLeg
	s.opLog = append(s.opLog, "transfer:"+transferID)

	txSnap, accSnap := *outLeg, *from
	return &txSnap, &accSnap, nil
}

func (s *MemoryLedgerStore) Amend(
	ctx context.Context,
	transactionID string,
	newType models.TransactionType,
	newAmount int64,
	newDescription string,
) (*models.Transaction, *models.Account, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.transactions[transactionID]
	if !ok {
		return nil, nil, ErrTransactionNotFound
	}
	account := s.accounts[old.AccountID]

	if old.Type == models.TxTransfer {
		counterparty := s.accounts[old.CounterpartyID]

		delta := models.EffectOf(models.TxTransfer, old.Leg, newAmount) - old.Effect()
		if err := s.checkDelta(account, delta); err != nil {
			return nil, nil, err
		}
		if err := s.checkDelta(counterparty, -delta); err != nil {
			return nil, nil, err
		}
		if s.consumeFailure() {
			return nil, nil, ErrWriteFailed
		}

		account.Balance += delta
		counterparty.Balance -= delta
		for _, t := range s.transactions {
			if t.TransferID == old.TransferID {
				t.Amount = newAmount
				t.Description = newDescription
			}
		}
		s.opLog = append(s.opLog, "amend:"+transactionID)

		txSnap, accSnap := *old, *account
		return &txSnap, &accSnap, nil
	}

	delta := models.EffectOf(newType, "", newAmount) - old.Effect()
	if err := s.checkDelta(account, delta); err != nil {
		return nil, nil, err
	}
	if s.consumeFailure() {
		return nil, nil, ErrWriteFailed
	}

	account.Balance += delta
	old.Type = newType
	old.Amount = newAmount
	old.Description = newDescription
	s.opLog = append(s.opLog, "amend:"+transactionID)

	txSnap, accSnap := *old, *account
	return &txSnap, &accSnap, nil
}

func (s *MemoryLedgerStore) Reverse(ctx context.Context, transactionID string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.transactions[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	account := s.accounts[old.AccountID]

	if old.Type == models.TxTransfer {
		counterparty := s.accounts[old.CounterpartyID]
		if err := s.checkDelta(account, -old.Effect()); err != nil {
			return nil, err
		}
		if err := s.checkDelta(counterparty, old.Effect()); err != nil {
			return nil, err
		}
		if s.consumeFailure() {
			return nil, ErrWriteFailed
		}

		account.Balance -= old.Effect()
		counterparty.Balance += old.Effect()
		for id, t := range s.transactions {
			if t.TransferID == old.TransferID {
				delete(s.transactions, id)
			}
		}
	} else {
		if err := s.checkDelta(account, -old.Effect()); err != nil {
			return nil, err
		}
		if s.consumeFailure() {
			return nil, ErrWriteFailed
		}

		account.Balance -= old.Effect()
		delete(s.transactions, transactionID)
	}
	s.opLog = append(s.opLog, "reverse:"+transactionID)

	accSnap := *account
	return &accSnap, nil
}
