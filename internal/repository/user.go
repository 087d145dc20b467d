package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"bank-ledger/internal/models"
	"bank-ledger/internal/utils"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	utils.LogSuccess("UserRepository", "Инициализирован репозиторий пользователей")
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (name, password_hash, role) VALUES ($1, $2, $3) RETURNING id, created_at`

	utils.LogDB("CREATE USER", fmt.Sprintf("Создание пользователя: %s (%s)", user.Name, user.Role))

	err := r.db.QueryRow(ctx, query, user.Name, user.PasswordHash, user.Role).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		utils.LogError("UserRepository", fmt.Sprintf("Ошибка создания пользователя %s", user.Name), err)
		return err
	}

	utils.LogSuccess("UserRepository", "Пользователь создан: %s (ID: %s)", user.Name, user.ID)
	return nil
}

func (r *UserRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	query := `SELECT id, name, password_hash, role, created_at FROM users WHERE name = $1`

	utils.LogDB("GET USER", fmt.Sprintf("Поиск пользователя: %s", name))

	user := &models.User{}
	err := r.db.QueryRow(ctx, query, name).Scan(&user.ID, &user.Name, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		utils.LogWarning("UserRepository", "Пользователь не найден: %s", name)
		return nil, err
	}

	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления пользователя: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("пользователь %s не найден", userID)
	}
	return nil
}
