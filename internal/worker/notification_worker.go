package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/service"
)

// StartNotificationWorker subscribes the notification service to ticket
// lifecycle events. Delivery runs synchronously inside Publish.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		logger.Warn("notification worker disabled")
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification worker started")
}
