package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bank-ledger/internal/models"
	"bank-ledger/internal/utils"
)

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) generateAccountID(ctx context.Context) (string, error) {
	const maxAttempts = 10

	for attempt := 0; attempt < maxAttempts; attempt++ {
		maxValue := big.NewInt(1_000_000_000_000) // 10^12
		n, err := rand.Int(rand.Reader, maxValue)
		if err != nil {
			return "", fmt.Errorf("ошибка генерации случайного числа: %w", err)
		}

		accountID := fmt.Sprintf("13%012d", n.Int64())

		var exists bool
		err = r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)", accountID).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("ошибка проверки уникальности: %w", err)
		}

		if !exists {
			return accountID, nil
		}

		utils.LogWarning("AccountRepo", "Коллизия ID счёта %s, попытка %d/%d", accountID, attempt+1, maxAttempts)
	}

	return "", errors.New("не удалось сгенерировать уникальный ID счёта после нескольких попыток")
}

// Create открывает счёт. Ненулевой начальный взнос записывается
// вступительной проводкой DEPOSIT в той же SQL-транзакции, поэтому
// инвариант баланса выполняется с момента открытия.
func (r *AccountRepository) Create(
	ctx context.Context,
	customerID string,
	accType models.AccountType,
	openingDeposit int64,
) (*models.Account, error) {

	accountID, err := r.generateAccountID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var account models.Account
	err = tx.QueryRow(ctx,
		`INSERT INTO accounts (id, customer_id, type, balance, status, created_at)
		 VALUES ($1, $2, $3, $4, 'active', NOW())
		 RETURNING id, customer_id, type, balance, status, created_at`,
		accountID, customerID, accType, openingDeposit,
	).Scan(&account.ID, &account.CustomerID, &account.Type, &account.Balance, &account.Status, &account.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания счёта: %w", err)
	}

	if openingDeposit > 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO transactions (id, account_id, type, amount, description, created_at)
			 VALUES ($1, $2, 'DEPOSIT', $3, 'вступительный взнос', NOW())`,
			uuid.New().String(), accountID, openingDeposit,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка записи вступительной проводки: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка подтверждения транзакции: %w", err)
	}

	return &account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, accountID string) (*models.Account, error) {
	var account models.Account
	err := r.db.QueryRow(ctx,
		`SELECT id, customer_id, type, balance, status, created_at
		 FROM accounts WHERE id = $1`,
		accountID,
	).Scan(&account.ID, &account.CustomerID, &account.Type, &account.Balance, &account.Status, &account.CreatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка получения счёта: %w", err)
	}
	return &account, nil
}

func (r *AccountRepository) scanAccounts(rows pgx.Rows) ([]models.Account, error) {
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		err := rows.Scan(&account.ID, &account.CustomerID, &account.Type, &account.Balance, &account.Status, &account.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования счёта: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) GetByCustomerID(ctx context.Context, customerID string) ([]models.Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, customer_id, type, balance, status, created_at
		 FROM accounts WHERE customer_id = $1
		 ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка счетов: %w", err)
	}
	return r.scanAccounts(rows)
}

func (r *AccountRepository) List(ctx context.Context) ([]models.Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, customer_id, type, balance, status, created_at
		 FROM accounts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка счетов: %w", err)
	}
	return r.scanAccounts(rows)
}

// CountOpenByCustomerID — количество открытых счетов клиента,
// используется при удалении клиента.
func (r *AccountRepository) CountOpenByCustomerID(ctx context.Context, customerID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts WHERE customer_id = $1 AND status = 'active'`,
		customerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта открытых счетов: %w", err)
	}
	return count, nil
}

// Close помечает счёт закрытым. Закрыть можно только счёт с нулевым
// балансом — иначе леджер потерял бы деньги.
func (r *AccountRepository) Close(ctx context.Context, accountID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := lockAccount(ctx, tx, accountID)
	if err != nil {
		return err
	}
	if account.Status != "active" {
		return ErrAccountClosed
	}
	if account.Balance != 0 {
		return ErrBalanceNotZero
	}

	if _, err := tx.Exec(ctx,
		"UPDATE accounts SET status = 'closed' WHERE id = $1", accountID,
	); err != nil {
		return fmt.Errorf("ошибка закрытия счёта: %w", err)
	}

	return tx.Commit(ctx)
}
