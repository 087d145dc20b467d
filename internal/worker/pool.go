package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bank-ledger/internal/utils"
)

var (
	ErrQueueFull       = errors.New("очередь задач переполнена")
	ErrShutdownTimeout = errors.New("превышен таймаут остановки пула")
)

// Job — асинхронная задача (запись в аудит-лог, инвалидация кеша).
type Job struct {
	ID      string
	Task    func() error
	RetryOn func(error) bool // нужна ли повторная попытка для данной ошибки
	OnDone  func(error)
}

// WorkerPool — пул воркеров с ограниченной очередью и повторами.
type WorkerPool struct {
	workers    int
	jobQueue   chan Job
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	stats      PoolStats
	maxRetries int

	// queueMu сериализует отправку в очередь с её закрытием:
	// Submit во время Shutdown не должен попасть в закрытый канал.
	queueMu sync.RWMutex
	closed  bool
}

type PoolStats struct {
	TotalJobs     int64
	CompletedJobs int64
	FailedJobs    int64
	ActiveWorkers int
	QueuedJobs    int
}

func NewWorkerPool(workers int, queueSize int, maxRetries int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &WorkerPool{
		workers:    workers,
		jobQueue:   make(chan Job, queueSize),
		ctx:        ctx,
		cancel:     cancel,
		maxRetries: maxRetries,
		stats: PoolStats{
			ActiveWorkers: workers,
		},
	}

	utils.LogSuccess("WorkerPool", "Создан пул воркеров: %d воркеров, очередь %d, повторов %d",
		workers, queueSize, maxRetries)

	return pool
}

// Start запускает воркеры
func (p *WorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	utils.LogSuccess("WorkerPool", "Все воркеры запущены")
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			utils.LogInfo("WorkerPool", "Воркер #%d завершает работу", id)
			return

		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.executeJob(id, job)
		}
	}
}

// executeJob выполняет задачу с повторами и экспоненциальной задержкой.
func (p *WorkerPool) executeJob(workerID int, job Job) {
	startTime := time.Now()
	var err error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			utils.LogWarning("WorkerPool", "Воркер #%d: повторная попытка #%d для задачи %s", workerID, attempt, job.ID)
			time.Sleep(time.Millisecond * time.Duration(100*attempt))
		}

		err = job.Task()
		if err == nil {
			p.mu.Lock()
			p.stats.CompletedJobs++
			p.mu.Unlock()

			utils.LogDebug("WorkerPool", "Воркер #%d: задача %s выполнена за %v", workerID, job.ID, time.Since(startTime))
			if job.OnDone != nil {
				job.OnDone(nil)
			}
			return
		}

		if job.RetryOn != nil && !job.RetryOn(err) {
			break // ошибка не требует повтора
		}
	}

	p.mu.Lock()
	p.stats.FailedJobs++
	p.mu.Unlock()

	utils.LogError("WorkerPool", fmt.Sprintf("Воркер #%d: задача %s провалилась после %v", workerID, job.ID, time.Since(startTime)), err)
	if job.OnDone != nil {
		job.OnDone(err)
	}
}

// Submit добавляет задачу в очередь без блокировки.
func (p *WorkerPool) Submit(job Job) error {
	p.queueMu.RLock()
	defer p.queueMu.RUnlock()
	if p.closed {
		return context.Canceled
	}

	select {
	case p.jobQueue <- job:
		p.mu.Lock()
		p.stats.TotalJobs++
		p.mu.Unlock()
		return nil

	default:
		utils.LogWarning("WorkerPool", "Очередь переполнена, задача %s отклонена", job.ID)
		return ErrQueueFull
	}
}

// SubmitBlocking добавляет задачу, ожидая место в очереди.
func (p *WorkerPool) SubmitBlocking(job Job) error {
	p.queueMu.RLock()
	defer p.queueMu.RUnlock()
	if p.closed {
		return context.Canceled
	}

	select {
	case <-p.ctx.Done():
		return context.Canceled

	case p.jobQueue <- job:
		p.mu.Lock()
		p.stats.TotalJobs++
		p.mu.Unlock()
		return nil
	}
}

// Shutdown закрывает очередь и ждёт завершения воркеров.
// Повторный вызов безопасен.
func (p *WorkerPool) Shutdown(timeout time.Duration) error {
	utils.LogInfo("WorkerPool", "Начинается остановка пула воркеров...")

	p.queueMu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobQueue)
	}
	p.queueMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		utils.LogSuccess("WorkerPool", "Все воркеры завершили работу")
		return nil

	case <-time.After(timeout):
		p.cancel()
		utils.LogWarning("WorkerPool", "Превышен таймаут остановки, принудительное завершение")
		return ErrShutdownTimeout
	}
}

func (p *WorkerPool) GetStats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := p.stats
	stats.QueuedJobs = len(p.jobQueue)
	return stats
}
