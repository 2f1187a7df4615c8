// Package audit writes the activity trail every mutating handler
// reports into. Recording is best-effort: a failed insert is logged
// and swallowed so an audit hiccup never fails the user's request.
package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/takaful-app/takaful/internal/models"
	"github.com/takaful-app/takaful/internal/repository"
	"go.uber.org/zap"
)

type Recorder struct {
	repo   repository.NotificationRepository
	logger *zap.Logger
}

func NewRecorder(repo repository.NotificationRepository, logger *zap.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record appends one action notification for the acting user's tenant.
func (r *Recorder) Record(ctx context.Context, tenantID, userID uuid.UUID, username, action, targetName string) {
	err := r.repo.Record(ctx, &models.Notification{
		TenantID:   tenantID,
		UserID:     userID,
		Username:   username,
		Action:     action,
		TargetName: targetName,
	})
	if err != nil {
		r.logger.Warn("failed to record audit notification",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
