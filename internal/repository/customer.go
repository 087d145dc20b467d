package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bank-ledger/internal/models"
	"bank-ledger/internal/utils"
)

type CustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	utils.LogDB("CREATE CUSTOMER", fmt.Sprintf("Создание клиента: %s", c.Name))

	err := r.db.QueryRow(ctx,
		`INSERT INTO customers (name, email, phone, status, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), 'active', NOW())
		 RETURNING id, status, created_at`,
		c.Name, c.Email, c.Phone,
	).Scan(&c.ID, &c.Status, &c.CreatedAt)

	if err != nil {
		return fmt.Errorf("ошибка создания клиента: %w", err)
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, customerID string) (*models.Customer, error) {
	var c models.Customer
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, COALESCE(phone, ''), status, created_at
		 FROM customers WHERE id = $1`,
		customerID,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Status, &c.CreatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("ошибка получения клиента: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepository) List(ctx context.Context) ([]models.Customer, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, email, COALESCE(phone, ''), status, created_at
		 FROM customers ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка клиентов: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования клиента: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *CustomerRepository) Update(ctx context.Context, c *models.Customer) error {
	result, err := r.db.Exec(ctx,
		`UPDATE customers SET name = $1, email = $2, phone = NULLIF($3, '')
		 WHERE id = $4`,
		c.Name, c.Email, c.Phone, c.ID,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления клиента: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, customerID string) error {
	result, err := r.db.Exec(ctx, "DELETE FROM customers WHERE id = $1", customerID)
	if err != nil {
		return fmt.Errorf("ошибка удаления клиента: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}
