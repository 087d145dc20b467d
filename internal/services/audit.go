package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"bank-ledger/internal/models"
	"bank-ledger/internal/utils"
	"bank-ledger/internal/worker"
)

// AuditStore — узкий контракт хранилища журнала.
type AuditStore interface {
	Append(ctx context.Context, e *models.AuditEntry) error
}

// AuditSubject — NATS-тема для событий аудита.
const AuditSubject = "bank.audit"

// AuditService пишет журнал действий в режиме fire-and-forget:
// запись уходит в воркер-пул (или выполняется синхронно, если пул
// недоступен), её сбой логируется и проглатывается — основную
// операцию аудит никогда не откатывает. При настроенном NATS событие
// дублируется в тему AuditSubject.
type AuditService struct {
	store AuditStore
	pool  *worker.WorkerPool
	nc    *nats.Conn
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

func (s *AuditService) SetWorkerPool(pool *worker.WorkerPool) {
	s.pool = pool
	utils.LogSuccess("AuditService", "Worker Pool подключен к сервису аудита")
}

func (s *AuditService) SetNATS(nc *nats.Conn) {
	s.nc = nc
	utils.LogSuccess("AuditService", "NATS подключен, события аудита публикуются в %s", AuditSubject)
}

// Record регистрирует действие. Ошибок не возвращает.
func (s *AuditService) Record(actorID, action, entityType, entityID, details string) {
	if s == nil || s.store == nil {
		return
	}

	entry := &models.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  time.Now(),
	}

	write := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := s.store.Append(ctx, entry); err != nil {
			return err
		}
		s.publish(entry)
		return nil
	}

	if s.pool != nil {
		job := worker.Job{
			ID:   fmt.Sprintf("audit-%s-%d", action, time.Now().UnixNano()),
			Task: write,
		}
		if err := s.pool.Submit(job); err == nil {
			return
		}
		utils.LogWarning("AuditService", "Worker Pool недоступен, запись аудита выполняется синхронно")
	}

	if err := write(); err != nil {
		utils.LogWarning("AuditService", "Запись аудита потеряна (%s %s): %v", action, entityID, err)
	}
}

func (s *AuditService) publish(entry *models.AuditEntry) {
	if s.nc == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := s.nc.Publish(AuditSubject, data); err != nil {
		utils.LogWarning("AuditService", "Не удалось опубликовать событие аудита: %v", err)
	}
}
