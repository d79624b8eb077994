package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/quizforge/internal/domain"
	"github.com/cuongbtq/quizforge/shared/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

// BatchRunner runs one batch of pending jobs
type BatchRunner interface {
	RunBatch(ctx context.Context, limit int) (*BatchReport, error)
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Runner        BatchRunner
	WorkerID      string
	QueueName     string
	Concurrency   int
	PrefetchCount int
	BatchLimit    int
	BatchTimeout  time.Duration
}

// trigger is a parsed batch message waiting for a runner
type trigger struct {
	message  domain.BatchMessage
	delivery amqp.Delivery
}

// Worker consumes batch triggers from RabbitMQ and runs one batch per message
type Worker struct {
	logger            *slog.Logger
	rabbitClient      *rabbitmq.Client
	runner            BatchRunner
	workerID          string
	rabbitMQQueueName string
	concurrency       int
	prefetchCount     int
	batchLimit        int
	batchTimeout      time.Duration
	triggers          chan *trigger
	wg                sync.WaitGroup
	stopChan          chan struct{}
	stopOnce          sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}
	batchLimit := cfg.BatchLimit
	if batchLimit <= 0 {
		batchLimit = DefaultBatchLimit
	}

	return &Worker{
		logger:            cfg.Logger,
		rabbitClient:      cfg.RabbitClient,
		runner:            cfg.Runner,
		workerID:          cfg.WorkerID,
		rabbitMQQueueName: cfg.QueueName,
		concurrency:       concurrency,
		prefetchCount:     prefetch,
		batchLimit:        batchLimit,
		batchTimeout:      cfg.BatchTimeout,
		triggers:          make(chan *trigger, concurrency),
		stopChan:          make(chan struct{}),
	}
}

// Start subscribes to the trigger queue and blocks until ctx is canceled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("batch_limit", w.batchLimit),
		slog.Duration("batch_timeout", w.batchTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return err
	}

	w.run(ctx, deliveries)

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping...")
	return nil
}

// run starts the batch runners and the dispatcher over deliveries
func (w *Worker) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.spawnWorkerPool(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.startMessageDispatcher(ctx, deliveries)
	}()
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
