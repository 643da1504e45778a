package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/crm-admin-api/internal/models"
	"github.com/noah-isme/crm-admin-api/pkg/jobs"
)

const auditResourceUsers = "users"

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuditRecorder accepts audit entries for persistence.
type AuditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// AuditServiceConfig tunes the background writer.
type AuditServiceConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// AuditService writes audit entries through a background queue, falling back
// to a synchronous write when the queue is unavailable or full.
type AuditService struct {
	repo    auditRepository
	queue   *jobs.Queue[models.AuditLog]
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService builds the service and its queue. Start must be called to
// enable background writes.
func NewAuditService(repo auditRepository, metrics *MetricsService, logger *zap.Logger, cfg AuditServiceConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	s.queue.OnDrop(func(job jobs.Job[models.AuditLog], err error) {
		s.metrics.RecordAuditEvent("dropped")
		s.logger.Error("audit entry dropped", zap.String("action", job.Payload.Action), zap.Error(err))
	})
	return s
}

// Start launches the background writers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop flushes pending entries and stops the writers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record queues entry for persistence. It never fails the caller.
func (s *AuditService) Record(ctx context.Context, entry models.AuditLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	err := s.queue.Enqueue(jobs.Job[models.AuditLog]{ID: entry.ID, Payload: entry})
	if err == nil {
		return
	}
	s.logger.Debug("audit queue unavailable, writing inline", zap.Error(err))
	if err := s.write(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job[models.AuditLog]) error {
	return s.write(ctx, job.Payload)
}

func (s *AuditService) write(ctx context.Context, entry models.AuditLog) error {
	if err := s.repo.Create(ctx, &entry); err != nil {
		s.metrics.RecordAuditEvent("failed")
		return err
	}
	s.metrics.RecordAuditEvent("written")
	return nil
}

// userAuditEntry builds an entry describing a change to one user record.
func userAuditEntry(action string, userID int64, before, after *models.User, meta models.RequestMeta) models.AuditLog {
	resourceID := formatID(userID)
	entry := models.AuditLog{
		UserID:     meta.ActorID,
		Action:     action,
		Resource:   auditResourceUsers,
		ResourceID: &resourceID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if before != nil {
		entry.OldValues = auditSnapshot(before)
	}
	if after != nil {
		entry.NewValues = auditSnapshot(after)
	}
	return entry
}

func auditSnapshot(u *models.User) []byte {
	payload, _ := json.Marshal(map[string]interface{}{
		"name":   u.Name,
		"email":  u.Email,
		"role":   u.Role,
		"status": u.Status,
		"avatar": u.Avatar,
	})
	return payload
}
