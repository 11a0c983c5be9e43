package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/college-portal-api/internal/models"
	"github.com/noah-isme/college-portal-api/pkg/jobs"
	"github.com/noah-isme/college-portal-api/pkg/mail"
)

const sweepBatchSize = 100

var errNoAddress = errors.New("recipient has no email address")

type dispatcherStore interface {
	FindTask(ctx context.Context, id string) (*models.NotificationTask, error)
	ClaimDueTasks(ctx context.Context, now, leaseUntil time.Time, limit int) ([]models.NotificationTask, error)
	MarkTaskSent(ctx context.Context, id string) error
	RecordTaskFailure(ctx context.Context, id, reason string, next time.Time) error
	MarkTaskFailed(ctx context.Context, id, reason string) error
	Create(ctx context.Context, n *models.Notification) error
}

type mailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DispatcherConfig tunes delivery retries and the recovery sweep.
type DispatcherConfig struct {
	Workers       int
	MaxAttempts   int
	RetryDelay    time.Duration
	SweepInterval time.Duration
	SendTimeout   time.Duration
	// QueueSize bounds tasks waiting for a worker. Defaults to 64 per worker.
	QueueSize int
}

// NotificationDispatcher delivers outbox tasks on a worker queue. Failed
// attempts are retried with backoff and tasks are marked failed once
// MaxAttempts is reached. Tasks whose lease expires, for example after a
// restart, are reclaimed by the periodic sweep.
type NotificationDispatcher struct {
	store   dispatcherStore
	mailer  mailSender
	metrics *MetricsService
	logger  *zap.Logger
	cfg     DispatcherConfig
	queue   *jobs.Queue

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNotificationDispatcher builds a dispatcher. Call Start before enqueueing.
func NewNotificationDispatcher(store dispatcherStore, mailer mailSender, metrics *MetricsService, cfg DispatcherConfig, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 64
	}
	d := &NotificationDispatcher{store: store, mailer: mailer, metrics: metrics, logger: logger, cfg: cfg}
	d.queue = jobs.NewQueue("notifications", d.deliver, jobs.QueueConfig{
		Workers:     cfg.Workers,
		BufferSize:  cfg.QueueSize,
		MaxRetries:  cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay,
		OnExhausted: d.exhausted,
		Logger:      logger,
	})
	return d
}

// Start launches the workers and the recovery sweep.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.queue.Start(ctx)
	d.wg.Add(1)
	go d.sweepLoop(ctx)
}

// Stop halts the sweep and waits for in-flight deliveries.
func (d *NotificationDispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.queue.Stop()
}

// Enqueue hands a persisted task to the workers without blocking. A task
// that does not fit stays pending and is picked up by the sweep once its
// lease expires.
func (d *NotificationDispatcher) Enqueue(task models.NotificationTask) error {
	return d.queue.TryEnqueue(jobs.Job{ID: task.ID, Type: string(task.Channel), Attempt: task.Attempts})
}

// LeaseUntil is the time after which an undelivered task may be reclaimed by the sweep.
func (d *NotificationDispatcher) LeaseUntil(now time.Time) time.Time {
	return now.Add(2 * d.cfg.SweepInterval)
}

// Sweep reclaims due pending tasks and queues them. It returns the number
// queued. Claimed tasks that do not fit keep their new lease and wait for a
// later sweep.
func (d *NotificationDispatcher) Sweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	tasks, err := d.store.ClaimDueTasks(ctx, now, d.LeaseUntil(now), sweepBatchSize)
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, task := range tasks {
		if err := d.Enqueue(task); err != nil {
			d.logger.Warn("failed to requeue notification", zap.String("task_id", task.ID), zap.Error(err))
			if errors.Is(err, jobs.ErrQueueFull) {
				break
			}
			continue
		}
		queued++
	}
	if queued > 0 {
		d.logger.Sugar().Infow("notification sweep requeued tasks", "count", queued)
	}
	return queued, nil
}

func (d *NotificationDispatcher) sweepLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Sweep(ctx); err != nil && ctx.Err() == nil {
				d.logger.Warn("notification sweep failed", zap.Error(err))
			}
		}
	}
}

func (d *NotificationDispatcher) deliver(ctx context.Context, job jobs.Job) error {
	task, err := d.store.FindTask(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			d.logger.Warn("notification task vanished", zap.String("task_id", job.ID))
			return nil
		}
		return err
	}
	if task.Status != models.NotificationPending {
		return nil
	}

	err = d.send(ctx, task)
	if err == nil {
		if markErr := d.store.MarkTaskSent(ctx, task.ID); markErr != nil {
			d.logger.Warn("failed to mark notification sent", zap.String("task_id", task.ID), zap.Error(markErr))
		}
		d.metrics.RecordNotification(string(task.Channel), "sent")
		return nil
	}

	if errors.Is(err, mail.ErrDisabled) || errors.Is(err, errNoAddress) {
		d.logger.Warn("notification undeliverable", zap.String("task_id", task.ID), zap.Error(err))
		if markErr := d.store.MarkTaskFailed(ctx, task.ID, err.Error()); markErr != nil {
			d.logger.Warn("failed to mark notification failed", zap.String("task_id", task.ID), zap.Error(markErr))
		}
		d.metrics.RecordNotification(string(task.Channel), "undeliverable")
		return nil
	}

	next := time.Now().UTC().Add(d.queue.Backoff(job.Attempt + 1)).Add(2 * d.cfg.SweepInterval)
	if recErr := d.store.RecordTaskFailure(ctx, task.ID, err.Error(), next); recErr != nil {
		d.logger.Warn("failed to record notification failure", zap.String("task_id", task.ID), zap.Error(recErr))
	}
	d.metrics.RecordNotification(string(task.Channel), "retry")
	return err
}

func (d *NotificationDispatcher) send(ctx context.Context, task *models.NotificationTask) error {
	record := &models.Notification{
		ID:            task.ID,
		RecipientID:   task.RecipientID,
		RecipientKind: task.RecipientKind,
		Title:         task.Subject,
		Message:       task.Message,
		Channel:       task.Channel,
		Status:        models.NotificationSent,
	}

	if task.Channel == models.ChannelInApp {
		return d.store.Create(ctx, record)
	}

	if task.Email == "" {
		return errNoAddress
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()
	if err := d.mailer.Send(sendCtx, task.Email, task.Subject, task.Message); err != nil {
		return err
	}
	if err := d.store.Create(ctx, record); err != nil {
		d.logger.Warn("failed to log sent email", zap.String("task_id", task.ID), zap.Error(err))
	}
	return nil
}

func (d *NotificationDispatcher) exhausted(ctx context.Context, job jobs.Job, err error) {
	reason := "delivery failed"
	if err != nil {
		reason = err.Error()
	}
	if markErr := d.store.MarkTaskFailed(ctx, job.ID, reason); markErr != nil {
		d.logger.Warn("failed to mark notification failed", zap.String("task_id", job.ID), zap.Error(markErr))
	}
	d.metrics.RecordNotification(job.Type, "failed")
}
