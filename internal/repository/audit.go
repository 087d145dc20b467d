package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"bank-ledger/internal/models"
)

type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append пишет запись журнала. Вызывается из воркер-пула после
// успешной основной операции; её ошибки наверх не поднимаются.
func (r *AuditRepository) Append(ctx context.Context, e *models.AuditEntry) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO audit_log (actor_id, action, entity_type, entity_id, details, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NOW())
		 RETURNING id, created_at`,
		e.ActorID, e.Action, e.EntityType, e.EntityID, e.Details,
	).Scan(&e.ID, &e.CreatedAt)

	if err != nil {
		return fmt.Errorf("ошибка записи в аудит-лог: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, actor_id, action, entity_type, entity_id, COALESCE(details, ''), created_at
		 FROM audit_log ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения аудит-лога: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи аудита: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
