package notifications

import "github.com/mrcasterbaldman/caster-bot/internal/models"

// NotificationInterface defines the contract for operator notifications
type NotificationInterface interface {
	SendReport(report *models.Report) error
	SendAlert(alert *models.Alert) error
}
