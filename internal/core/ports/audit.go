package ports

import (
	"context"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/audit"
)

// AuditRepository defines the interface for evaluation audit storage
type AuditRepository interface {
	Create(ctx context.Context, event *audit.Event) error
}

// AuditService records metadata about evaluation requests
type AuditService interface {
	Record(ctx context.Context, req *audit.CreateEventRequest) error
}
