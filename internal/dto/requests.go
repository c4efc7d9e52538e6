package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobconnect-backend/internal/models"
)

// CreateJobRequest - публикация заказа.
type CreateJobRequest struct {
	Title           string     `json:"title" binding:"required"`
	BiddingDeadline *time.Time `json:"biddingDeadline"`
}

// AddBidRequest - ставка установщика.
type AddBidRequest struct {
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	CoverLetter    string `json:"coverLetter"`
	WarrantyMonths *int   `json:"warrantyMonths" binding:"omitempty,min=0"`
	DurationDays   *int   `json:"durationDays" binding:"omitempty,min=1"`
}

// PrivateMessageRequest - сообщение в переписке по заказу.
type PrivateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// AwardRequest - выбор исполнителей. Порядок installerIds задаёт очередь.
type AwardRequest struct {
	InstallerIDs []uuid.UUID `json:"installerIds" binding:"required,min=1"`
	Strategy     string      `json:"strategy" binding:"required,oneof=sequential simultaneous"`
}

// ReopenBiddingRequest - повторное открытие приёма ставок.
type ReopenBiddingRequest struct {
	BiddingDeadline *time.Time `json:"biddingDeadline"`
}

// FundRequest - подтверждение оплаты шлюзом.
type FundRequest struct {
	GatewayOrderID string `json:"gatewayOrderId" binding:"required"`
}

// AddFundsRequest - дополнительная оплата к заказу в работе.
type AddFundsRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description"`
}

// StartWorkRequest - код начала работ от заказчика.
type StartWorkRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// ApproveRequest - приёмка работы с необязательной оценкой.
type ApproveRequest struct {
	Rating *int `json:"rating" binding:"omitempty,min=1,max=5"`
}

// RevisionRequest - возврат работы на доработку.
type RevisionRequest struct {
	Note string `json:"note"`
}

// ReasonRequest - действие с обязательной причиной (отмена, спор, помощь).
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// DateChangeRequest - предложение новой даты начала работ.
type DateChangeRequest struct {
	NewDate time.Time `json:"newDate" binding:"required"`
}

// ResolveDisputeRequest - решение администратора по спору.
type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=release refund resume"`
	Rating     *int   `json:"rating" binding:"omitempty,min=1,max=5"`
}

// ConfirmAddOnRequest - подтверждение дополнительной оплаты шлюзом.
type ConfirmAddOnRequest struct {
	GatewayOrderID string `json:"gatewayOrderId" binding:"required"`
}

// JobEventRequest - внешнее событие изменения заказа. EventID нужен для дедупликации повторных доставок.
type JobEventRequest struct {
	EventID string      `json:"eventId" binding:"required"`
	Before  *models.Job `json:"before"`
	After   *models.Job `json:"after" binding:"required"`
	ActorID uuid.UUID   `json:"actorId"`
}
