package services

import (
	"context"

	"github.com/redis/go-redis/v9"

	"bank-ledger/internal/cache"
	"bank-ledger/internal/models"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/utils"
)

type StatsService struct {
	statsRepo *repository.StatsRepository
	cache     *cache.RedisCache
}

func NewStatsService(statsRepo *repository.StatsRepository) *StatsService {
	return &StatsService{statsRepo: statsRepo}
}

func (s *StatsService) SetCache(c *cache.RedisCache) {
	s.cache = c
}

// Collect отдаёт агрегаты панели; кешируются на короткий TTL,
// кеш сбрасывается при любой леджер-операции.
func (s *StatsService) Collect(ctx context.Context) (*models.StatsResponse, error) {
	if s.cache != nil {
		var cached models.StatsResponse
		err := s.cache.GetJSON(ctx, cache.StatsKey(), &cached)
		if err == nil {
			utils.LogSuccess("Cache", "HIT: статистика панели")
			return &cached, nil
		}
		if err != redis.Nil {
			utils.LogWarning("Cache", "Ошибка чтения статистики из кеша: %v", err)
		}
	}

	stats, err := s.statsRepo.Collect(ctx)
	if err != nil {
		utils.LogError("StatsService", "Ошибка сбора статистики", err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.StatsKey(), stats, cache.StatsTTL); err != nil {
			utils.LogWarning("Cache", "Не удалось сохранить статистику в кеш: %v", err)
		}
	}

	return stats, nil
}
