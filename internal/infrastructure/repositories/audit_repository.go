package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/audit"
	"github.com/avatarctic/requirements-evaluator/internal/core/ports"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/db"
)

type auditRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewAuditRepository creates a Postgres-backed AuditRepository
func NewAuditRepository(database *db.Database, logger *logrus.Logger) ports.AuditRepository {
	return &auditRepository{
		db:     database,
		logger: logger,
	}
}

const insertAuditEventQuery = `
	INSERT INTO audit_events (
		id, client_key, action, outcome, model, duration_ms,
		requirement_length, request_id, timestamp
	) VALUES (
		:id, :client_key, :action, :outcome, :model, :duration_ms,
		:requirement_length, :request_id, :timestamp
	)`

// Create inserts a new audit event into the database
func (r *auditRepository) Create(ctx context.Context, event *audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if _, err := r.db.DB.NamedExecContext(ctx, insertAuditEventQuery, event); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"client_key": event.ClientKey, "action": event.Action, "outcome": event.Outcome}).WithError(err).Error("db: failed to insert audit event")
		}
		return err
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"event_id": event.ID, "action": event.Action}).Debug("db: audit event inserted")
	}
	return nil
}

type logAuditRepository struct {
	logger *logrus.Logger
}

// NewLogAuditRepository writes audit events to the structured log when no database is configured.
func NewLogAuditRepository(logger *logrus.Logger) ports.AuditRepository {
	return &logAuditRepository{logger: logger}
}

func (r *logAuditRepository) Create(_ context.Context, event *audit.Event) error {
	if r.logger == nil {
		return nil
	}
	r.logger.WithFields(logrus.Fields{
		"audit":              true,
		"event_id":           event.ID,
		"client_key":         event.ClientKey,
		"action":             event.Action,
		"outcome":            event.Outcome,
		"model":              event.Model,
		"duration_ms":        event.DurationMs,
		"requirement_length": event.RequirementLength,
		"request_id":         event.RequestID,
	}).Info("audit event")
	return nil
}
