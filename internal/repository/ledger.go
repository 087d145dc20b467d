package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bank-ledger/internal/models"
	"bank-ledger/internal/utils"
)

// LedgerRepository выполняет леджер-операции: каждая мутация проводки
// и изменение баланса её счёта коммитятся одной SQL-транзакцией.
// Строки счетов блокируются через SELECT ... FOR UPDATE, поэтому
// конкурентные операции по одному счёту сериализуются на уровне БД;
// при переводах счета блокируются в порядке возрастания id,
// чтобы исключить взаимные блокировки.
type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const txColumns = `id, account_id, type, COALESCE(leg, ''), amount,
       COALESCE(counterparty_id, ''), COALESCE(transfer_id::text, ''),
       COALESCE(description, ''), created_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Type,
		&t.Leg,
		&t.Amount,
		&t.CounterpartyID,
		&t.TransferID,
		&t.Description,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// lockAccount читает счёт под FOR UPDATE внутри открытой транзакции.
func lockAccount(ctx context.Context, tx pgx.Tx, accountID string) (*models.Account, error) {
	var a models.Account
	err := tx.QueryRow(ctx,
		`SELECT id, customer_id, type, balance, status, created_at
		 FROM accounts WHERE id = $1 FOR UPDATE`,
		accountID,
	).Scan(&a.ID, &a.CustomerID, &a.Type, &a.Balance, &a.Status, &a.CreatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка чтения счёта: %w", err)
	}
	return &a, nil
}

func applyDelta(ctx context.Context, tx pgx.Tx, account *models.Account, delta int64) error {
	projected := account.Balance + delta
	if projected < 0 && !account.Type.AllowsNegative() {
		return ErrInsufficientBalance
	}

	_, err := tx.Exec(ctx,
		"UPDATE accounts SET balance = balance + $1 WHERE id = $2",
		delta, account.ID,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления баланса: %w", err)
	}
	account.Balance = projected
	return nil
}

// Apply создаёт проводку DEPOSIT/WITHDRAWAL и применяет её эффект
// к балансу счёта одним атомарным блоком.
func (r *LedgerRepository) Apply(
	ctx context.Context,
	accountID string,
	txType models.TransactionType,
	amount int64,
	description string,
) (*models.Transaction, *models.Account, error) {

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := lockAccount(ctx, tx, accountID)
	if err != nil {
		return nil, nil, err
	}
	if account.Status != "active" {
		return nil, nil, ErrAccountClosed
	}

	if err := applyDelta(ctx, tx, account, models.EffectOf(txType, "", amount)); err != nil {
		return nil, nil, err
	}

	transaction, err := scanTransaction(tx.QueryRow(ctx,
		`INSERT INTO transactions (id, account_id, type, amount, description, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NOW())
		 RETURNING `+txColumns,
		uuid.New().String(), accountID, txType, amount, description,
	))
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка записи проводки: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("ошибка подтверждения транзакции: %w", err)
	}

	utils.LogSuccess("LedgerRepo", "Проводка %s (%s) по счёту %s, баланс: %d",
		transaction.ID, txType, accountID, account.Balance)

	return transaction, account, nil
}

// Transfer — перевод двумя связанными проводками с общим transfer_id:
// списание на счёте-источнике и зачисление на счёте-получателе.
// Счета блокируются в порядке возрастания id.
func (r *LedgerRepository) Transfer(
	ctx context.Context,
	fromAccountID, toAccountID string,
	amount int64,
	description string,
) (*models.Transaction, *models.Account, error) {

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	first, second := fromAccountID, toAccountID
	if second < first {
		first, second = second, first
	}

	locked := map[string]*models.Account{}
	for _, id := range []string{first, second} {
		account, err := lockAccount(ctx, tx, id)
		if err != nil {
			return nil, nil, err
		}
		if account.Status != "active" {
			return nil, nil, ErrAccountClosed
		}
		locked[id] = account
	}
	from, to := locked[fromAccountID], locked[toAccountID]

	if err := applyDelta(ctx, tx, from, -amount); err != nil {
		return nil, nil, err
	}
	if err := applyDelta(ctx, tx, to, amount); err != nil {
		return nil, nil, err
	}

	transferID := uuid.New().String()
	outLeg, err := scanTransaction(tx.QueryRow(ctx,
		`INSERT INTO transactions (id, account_id, type, leg, amount, counterparty_id, transfer_id, description, created_at)
		 VALUES ($1, $2, 'TRANSFER', 'out', $3, $4, $5, NULLIF($6, ''), NOW())
		 RETURNING `+txColumns,
		uuid.New().String(), fromAccountID, amount, toAccountID, transferID, description,
	))
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка записи проводки списания: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (id, account_id, type, leg, amount, counterparty_id, transfer_id, description, created_at)
		 VALUES ($1, $2, 'TRANSFER', 'in', $3, $4, $5, NULLIF($6, ''), NOW())`,
		uuid.New().String(), toAccountID, amount, fromAccountID, transferID, description,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка записи проводки зачисления: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("ошибка подтверждения транзакции: %w", err)
	}

	utils.LogSuccess("LedgerRepo", "Перевод %s: %s → %s на %d", transferID, fromAccountID, toAccountID, amount)

	return outLeg, from, nil
}

// Amend переписывает поля проводки и применяет к балансу дельту
// effect(new) - effect(old) одним атомарным блоком.
// Для ноги перевода меняются только сумма и описание — зеркально
// на обеих ногах и обоих счетах.
func (r *LedgerRepository) Amend(
	ctx context.Context,
	transactionID string,
	newType models.TransactionType,
	newAmount int64,
	newDescription string,
) (*models.Transaction, *models.Account, error) {

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	old, err := scanTransaction(tx.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1 FOR UPDATE`,
		transactionID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, ErrTransactionNotFound
		}
		return nil, nil, fmt.Errorf("ошибка чтения проводки: %w", err)
	}

	if old.Type == models.TxTransfer {
		return r.amendTransferLeg(ctx, tx, old, newAmount, newDescription)
	}

	account, err := lockAccount(ctx, tx, old.AccountID)
	if err != nil {
		return nil, nil, err
	}

	delta := models.EffectOf(newType, "", newAmount) - old.Effect()
	if err := applyDelta(ctx, tx, account, delta); err != nil {
		return nil, nil, err
	}

	amended, err := scanTransaction(tx.QueryRow(ctx,
		`UPDATE transactions SET type = $1, amount = $2, description = NULLIF($3, '')
		 WHERE id = $4
		 RETURNING `+txColumns,
		newType, newAmount, newDescription, transactionID,
	))
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка обновления проводки: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("ошибка подтверждения транзакции: %w", err)
	}

	utils.LogSuccess("LedgerRepo", "Проводка %s изменена: %s %d → %s %d (дельта %d)",
		transactionID, old.Type, old.Amount, newType, newAmount, delta)

	return amended, account, nil
}

func (r *LedgerRepository) amendTransferLeg(
	ctx context.Context,
	tx pgx.Tx,
	leg *models.Transaction,
	newAmount int64,
	newDescription string,
) (*models.Transaction, *models.Account, error) {

	first, second := leg.AccountID, leg.CounterpartyID
	if second < first {
		first, second = second, first
	}

	locked := map[string]*models.Account{}
	for _, id := range []string{first, second} {
		account, err := lockAccount(ctx, tx, id)
		if err != nil {
			return nil, nil, err
		}
		locked[id] = account
	}

	// Дельта для ноги leg; у парной ноги эффект противоположный.
	delta := models.EffectOf(models.TxTransfer, leg.Leg, newAmount) - leg.Effect()
	if err := applyDelta(ctx, tx, locked[leg.AccountID], delta); err != nil {
		return nil, nil, err
	}
	if err := applyDelta(ctx, tx, locked[leg.CounterpartyID], -delta); err != nil {
		return nil, nil, err
	}

	_, err := tx.Exec(ctx,
		`UPDATE transactions SET amount = $1, description = NULLIF($2, '')
		 WHERE transfer_id = $3::uuid`,
		newAmount, newDescription, leg.TransferID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка обновления ног перевода: %w", err)
	}

	amended, err := scanTransaction(tx.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1`, leg.ID,
	))
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка чтения проводки: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("ошибка подтверждения транзакции: %w", err)
	}

	utils.LogSuccess("LedgerRepo", "Перевод %s изменён: сумма %d → %d", leg.TransferID, leg.Amount, newAmount)

	return amended, locked[leg.AccountID], nil
}

// Reverse применяет к балансу -effect(old) и удаляет проводку одним
// атомарным блоком. Ноги перевода удаляются парой; повторный вызов
// по тому же id возвращает ErrTransactionNotFound без изменений.
func (r *LedgerRepository) Reverse(ctx context.Context, transactionID string) (*models.Account, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	old, err := scanTransaction(tx.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1 FOR UPDATE`,
		transactionID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("ошибка чтения проводки: %w", err)
	}

	var account *models.Account
	if old.Type == models.TxTransfer {
		first, second := old.AccountID, old.CounterpartyID
		if second < first {
			first, second = second, first
		}
		locked := map[string]*models.Account{}
		for _, id := range []string{first, second} {
			a, err := lockAccount(ctx, tx, id)
			if err != nil {
				return nil, err
			}
			locked[id] = a
		}

		if err := applyDelta(ctx, tx, locked[old.AccountID], -old.Effect()); err != nil {
			return nil, err
		}
		if err := applyDelta(ctx, tx, locked[old.CounterpartyID], old.Effect()); err != nil {
			return nil, err
		}

		if _, err := tx.Exec(ctx,
			"DELETE FROM transactions WHERE transfer_id = $1::uuid", old.TransferID,
		); err != nil {
			return nil, fmt.Errorf("ошибка удаления ног перевода: %w", err)
		}
		account = locked[old.AccountID]
	} else {
		account, err = lockAccount(ctx, tx, old.AccountID)
		if err != nil {
			return nil, err
		}
		if err := applyDelta(ctx, tx, account, -old.Effect()); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx,
			"DELETE FROM transactions WHERE id = $1", transactionID,
		); err != nil {
			return nil, fmt.Errorf("ошибка удаления проводки: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка подтверждения транзакции: %w", err)
	}

	utils.LogSuccess("LedgerRepo", "Проводка %s сторнирована, баланс счёта %s: %d",
		transactionID, account.ID, account.Balance)

	return account, nil
}

// GetAccount — точечное чтение счёта вне атомарного блока.
func (r *LedgerRepository) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	var a models.Account
	err := r.db.QueryRow(ctx,
		`SELECT id, customer_id, type, balance, status, created_at
		 FROM accounts WHERE id = $1`,
		accountID,
	).Scan(&a.ID, &a.CustomerID, &a.Type, &a.Balance, &a.Status, &a.CreatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка получения счёта: %w", err)
	}
	return &a, nil
}

// GetTransaction — точечное чтение проводки вне атомарного блока.
func (r *LedgerRepository) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1`, transactionID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("ошибка получения проводки: %w", err)
	}
	return t, nil
}

// ListByAccount возвращает проводки счёта, новые первыми.
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE account_id = $1
		 ORDER BY created_at DESC, id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения проводок: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования проводки: %w", err)
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}
