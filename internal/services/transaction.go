package services

import (
	"context"
	"fmt"
	"time"

	"bank-ledger/internal/cache"
	"bank-ledger/internal/models"
	"bank-ledger/internal/money"
	"bank-ledger/internal/utils"
	"bank-ledger/internal/worker"
)

// LedgerStore — узкий контракт хранилища для леджер-операций:
// точечные чтения плюс атомарные мутации "проводка + баланс".
// Реализации: repository.LedgerRepository (Postgres) и
// repository.MemoryLedgerStore (тесты).
type LedgerStore interface {
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	ListByAccount(ctx context.Context, accountID string) ([]models.Transaction, error)

	Apply(ctx context.Context, accountID string, txType models.TransactionType, amount int64, description string) (*models.Transaction, *models.Account, error)
	Transfer(ctx context.Context, fromAccountID, toAccountID string, amount int64, description string) (*models.Transaction, *models.Account, error)
	Amend(ctx context.Context, transactionID string, newType models.TransactionType, newAmount int64, newDescription string) (*models.Transaction, *models.Account, error)
	Reverse(ctx context.Context, transactionID string) (*models.Account, error)
}

// TransactionService — сервис леджер-операций. Валидация выполняется
// до любых мутаций; сами мутации атомарны на уровне хранилища.
// Кеш и аудит — побочные эффекты после успешного коммита.
type TransactionService struct {
	store      LedgerStore
	audit      *AuditService
	cache      *cache.RedisCache
	workerPool *worker.WorkerPool
}

func NewTransactionService(store LedgerStore, audit *AuditService) *TransactionService {
	return &TransactionService{
		store: store,
		audit: audit,
	}
}

func (s *TransactionService) SetCache(c *cache.RedisCache) {
	s.cache = c
}

func (s *TransactionService) SetWorkerPool(pool *worker.WorkerPool) {
	s.workerPool = pool
	utils.LogSuccess("TransactionService", "Worker Pool подключен к сервису транзакций")
}

// parseAmount — общая валидация суммы: десятичная строка, строго > 0.
func parseAmount(raw string, v *ValidationError) int64 {
	amount, err := money.Parse(raw)
	if err != nil {
		v.add("amount", "сумма должна быть десятичным числом вида 123.45")
		return 0
	}
	if amount <= 0 {
		v.add("amount", ErrInvalidAmount.Error())
		return 0
	}
	return amount
}

// Create выполняет операцию Apply: создаёт проводку DEPOSIT/WITHDRAWAL
// и атомарно применяет её эффект к балансу счёта.
func (s *TransactionService) Create(ctx context.Context, actorID string, req models.CreateTransactionRequest) (*models.Transaction, *models.Account, error) {
	utils.LogInfo("TransactionService", "Создание проводки: тип=%s, счёт=%s, сумма=%s", req.Type, req.AccountID, req.Amount)

	v := newValidation()
	if req.AccountID == "" {
		v.add("account_id", "обязательное поле")
	}
	txType := models.TransactionType(req.Type)
	if !txType.Valid() {
		v.add("type", "допустимые типы: DEPOSIT, WITHDRAWAL, TRANSFER")
	} else if txType == models.TxTransfer {
		v.add("type", "перевод создаётся через /transactions/transfer")
	}
	amount := parseAmount(req.Amount, v)
	if err := v.orNil(); err != nil {
		utils.LogWarning("TransactionService", "Ошибка валидации проводки: %v", v.Fields)
		return nil, nil, err
	}

	transaction, account, err := s.store.Apply(ctx, req.AccountID, txType, amount, req.Description)
	if err != nil {
		utils.LogError("TransactionService", "Ошибка создания проводки", err)
		return nil, nil, err
	}

	s.invalidateCacheAsync(ctx, transaction.ID, account.ID)
	s.audit.Record(actorID, "transaction.create", "transaction", transaction.ID,
		fmt.Sprintf("%s %s по счёту %s", txType, money.Format(amount), account.ID))

	utils.LogSuccess("TransactionService", "Проводка %s создана, баланс счёта %s: %s",
		transaction.ID, account.ID, money.Format(account.Balance))

	return transaction, account, nil
}

// Transfer — двойная проводка: списание и зачисление с общим
// transfer_id, оба счёта меняются одной атомарной операцией.
func (s *TransactionService) Transfer(ctx context.Context, actorID string, req models.TransferRequest) (*models.Transaction, *models.Account, error) {
	utils.LogInfo("TransactionService", "Перевод: %s → %s (сумма: %s)", req.FromAccountID, req.ToAccountID, req.Amount)

	v := newValidation()
	if req.FromAccountID == "" {
		v.add("from_account_id", "обязательное поле")
	}
	if req.ToAccountID == "" {
		v.add("to_account_id", "обязательное поле")
	}
	if req.FromAccountID != "" && req.FromAccountID == req.ToAccountID {
		v.add("to_account_id", ErrSelfTransfer.Error())
	}
	amount := parseAmount(req.Amount, v)
	if err := v.orNil(); err != nil {
		utils.LogWarning("TransactionService", "Ошибка валидации перевода: %v", v.Fields)
		return nil, nil, err
	}

	outLeg, from, err := s.store.Transfer(ctx, req.FromAccountID, req.ToAccountID, amount, req.Description)
	if err != nil {
		utils.LogError("TransactionService", "Ошибка выполнения перевода", err)
		return nil, nil, err
	}

	s.invalidateCacheAsync(ctx, outLeg.TransferID, req.FromAccountID, req.ToAccountID)
	s.audit.Record(actorID, "transaction.transfer", "transfer", outLeg.TransferID,
		fmt.Sprintf("%s → %s на %s", req.FromAccountID, req.ToAccountID, money.Format(amount)))

	utils.LogSuccess("TransactionService", "Перевод %s выполнен", outLeg.TransferID)

	return outLeg, from, nil
}

// Amend — операция изменения: хранилище применяет к балансу дельту
// effect(new) - effect(old) вместе с перезаписью полей проводки.
func (s *TransactionService) Amend(ctx context.Context, actorID, transactionID string, req models.AmendTransactionRequest) (*models.Transaction, *models.Account, error) {
	utils.LogInfo("TransactionService", "Изменение проводки %s: тип=%s, сумма=%s", transactionID, req.Type, req.Amount)

	v := newValidation()
	newType := models.TransactionType(req.Type)
	if !newType.Valid() {
		v.add("type", "допустимые типы: DEPOSIT, WITHDRAWAL, TRANSFER")
	}
	amount := parseAmount(req.Amount, v)
	if err := v.orNil(); err != nil {
		utils.LogWarning("TransactionService", "Ошибка валидации изменения: %v", v.Fields)
		return nil, nil, err
	}

	// Смена типа с/на TRANSFER запрещена: нога перевода существует
	// только парой, у одиночной проводки пары нет.
	old, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, nil, err
	}
	if (old.Type == models.TxTransfer) != (newType == models.TxTransfer) {
		v.add("type", "тип перевода нельзя менять на другой и обратно")
		return nil, nil, v
	}

	amended, account, err := s.store.Amend(ctx, transactionID, newType, amount, req.Description)
	if err != nil {
		utils.LogError("TransactionService", "Ошибка изменения проводки", err)
		return nil, nil, err
	}

	s.invalidateCacheAsync(ctx, transactionID, account.ID, amended.CounterpartyID)
	s.audit.Record(actorID, "transaction.amend", "transaction", transactionID,
		fmt.Sprintf("%s %s → %s %s", old.Type, money.Format(old.Amount), newType, money.Format(amount)))

	utils.LogSuccess("TransactionService", "Проводка %s изменена, баланс счёта %s: %s",
		transactionID, account.ID, money.Format(account.Balance))

	return amended, account, nil
}

// Reverse — операция удаления: хранилище применяет -effect(old)
// и удаляет проводку. Повторный вызов по тому же id — NotFound
// без изменений баланса.
func (s *TransactionService) Reverse(ctx context.Context, actorID, transactionID string) (*models.Account, error) {
	utils.LogInfo("TransactionService", "Сторнирование проводки %s", transactionID)

	account, err := s.store.Reverse(ctx, transactionID)
	if err != nil {
		utils.LogError("TransactionService", "Ошибка сторнирования проводки", err)
		return nil, err
	}

	s.invalidateCacheAsync(ctx, transactionID, account.ID)
	s.audit.Record(actorID, "transaction.reverse", "transaction", transactionID,
		fmt.Sprintf("баланс счёта %s после сторно: %s", account.ID, money.Format(account.Balance)))

	utils.LogSuccess("TransactionService", "Проводка %s сторнирована", transactionID)

	return account, nil
}

func (s *TransactionService) Get(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return s.store.GetTransaction(ctx, transactionID)
}

// History возвращает проводки счёта; счёт должен существовать.
func (s *TransactionService) History(ctx context.Context, accountID string) ([]models.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	transactions, err := s.store.ListByAccount(ctx, accountID)
	if err != nil {
		utils.LogError("TransactionService", "Ошибка получения проводок", err)
		return nil, err
	}

	utils.LogSuccess("TransactionService", "Найдено %d проводок по счёту %s", len(transactions), accountID)
	return transactions, nil
}

// invalidateCacheAsync сбрасывает кеш балансов через Worker Pool;
// при переполненной очереди — синхронно.
func (s *TransactionService) invalidateCacheAsync(ctx context.Context, jobID string, accountIDs ...string) {
	if s.cache == nil {
		return
	}

	keys := []string{cache.StatsKey()}
	for _, id := range accountIDs {
		if id != "" {
			keys = append(keys, cache.AccountBalanceKey(id))
		}
	}

	drop := func() error {
		dropCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return s.cache.Delete(dropCtx, keys...)
	}

	if s.workerPool != nil {
		job := worker.Job{
			ID:   "cache-invalidate-" + jobID,
			Task: drop,
		}
		if err := s.workerPool.Submit(job); err == nil {
			return
		}
		utils.LogWarning("TransactionService", "Worker Pool переполнен, инвалидация кеша выполняется синхронно")
	}

	if err := drop(); err != nil {
		utils.LogWarning("TransactionService", "Не удалось инвалидировать кеш: %v", err)
	}
}
