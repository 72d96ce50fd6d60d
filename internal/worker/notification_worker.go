package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/service"
)

// StartNotificationWorker registers the email handlers on the event bus.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		if logger != nil {
			logger.Warn("notification service missing; no emails will be sent")
		}
		return
	}
	notificationService.RegisterHandlers()
}
