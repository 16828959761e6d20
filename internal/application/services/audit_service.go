package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/audit"
	"github.com/avatarctic/requirements-evaluator/internal/core/ports"
)

type AuditService struct {
	repo    ports.AuditRepository
	enabled bool
	logger  *logrus.Logger
}

func NewAuditService(repo ports.AuditRepository, enabled bool, logger *logrus.Logger) ports.AuditService {
	return &AuditService{
		repo:    repo,
		enabled: enabled,
		logger:  logger,
	}
}

func (s *AuditService) Record(ctx context.Context, req *audit.CreateEventRequest) error {
	if !s.enabled || s.repo == nil {
		return nil
	}

	event := &audit.Event{
		ID:                uuid.New(),
		ClientKey:         req.ClientKey,
		Action:            string(req.Action),
		Outcome:           req.Outcome,
		Model:             req.Model,
		DurationMs:        req.Duration.Milliseconds(),
		RequirementLength: req.RequirementLength,
		RequestID:         req.RequestID,
		Timestamp:         time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, event); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"client_key": req.ClientKey, "action": req.Action, "outcome": req.Outcome}).WithError(err).Error("failed to persist audit event")
		}
		return err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"event_id": event.ID, "action": req.Action, "outcome": req.Outcome}).Debug("audit event persisted")
	}
	return nil
}
