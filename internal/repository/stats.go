package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"bank-ledger/internal/models"
	"bank-ledger/internal/money"
)

type StatsRepository struct {
	db *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// Collect собирает агрегаты для админской панели.
func (r *StatsRepository) Collect(ctx context.Context) (*models.StatsResponse, error) {
	stats := &models.StatsResponse{}

	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM customers").Scan(&stats.Customers); err != nil {
		return nil, fmt.Errorf("ошибка подсчёта клиентов: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT type, COUNT(*), COALESCE(SUM(balance), 0)
		 FROM accounts WHERE status = 'active'
		 GROUP BY type ORDER BY type`,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации по типам счетов: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.AccountTypeStat
		var total int64
		if err := rows.Scan(&s.Type, &s.Count, &total); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агрегата: %w", err)
		}
		s.TotalBalance = money.Format(total)
		stats.OpenAccounts += s.Count
		stats.ByAccountType = append(stats.ByAccountType, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM transactions WHERE created_at > NOW() - INTERVAL '24 hours'",
	).Scan(&stats.TransactionsLast24h)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта проводок: %w", err)
	}

	return stats, nil
}
