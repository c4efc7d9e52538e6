package dto

import (
	"github.com/ignatzorin/jobconnect-backend/internal/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// FundResponse - итог оплаты. StartOTP отдаётся заказчику один раз.
type FundResponse struct {
	Job         *models.Job               `json:"job"`
	Transaction *models.EscrowTransaction `json:"transaction"`
	StartOTP    string                    `json:"startOtp"`
}

// EscrowListResponse - журнал escrow по заказу со сводкой.
type EscrowListResponse struct {
	Transactions []models.EscrowTransaction `json:"transactions"`
	Summary      models.EscrowSummary       `json:"summary"`
}

// NotificationListResponse - страница уведомлений.
type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
	Pagination    Pagination            `json:"pagination"`
}

// Pagination - параметры страницы.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// SweepEnqueuedResponse - проверка поставлена в очередь.
type SweepEnqueuedResponse struct {
	Sweep  string `json:"sweep"`
	TaskID string `json:"taskId"`
}

// EventAcceptedResponse - итог приёма внешнего события.
type EventAcceptedResponse struct {
	EventID   string `json:"eventId"`
	Duplicate bool   `json:"duplicate"`
}
