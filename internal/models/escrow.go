package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы escrow-транзакций.
const (
	EscrowStatusInitiated = "Initiated"
	EscrowStatusFunded    = "Funded"
	EscrowStatusReleased  = "Released"
	EscrowStatusRefunded  = "Refunded"
	EscrowStatusFailed    = "Failed"
)

// Виды escrow-транзакций.
const (
	EscrowKindPrimary = "Primary"
	EscrowKindAddOn   = "AddOn"
)

// EscrowTransaction - движение денег по заказу. Не удаляется, меняется один раз.
type EscrowTransaction struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	JobID             uuid.UUID  `db:"job_id" json:"jobId"`
	Kind              string     `db:"kind" json:"kind"`
	Status            string     `db:"status" json:"status"`
	Amount            int64      `db:"amount" json:"amount"`
	JobGiverFee       int64      `db:"job_giver_fee" json:"jobGiverFee"`
	Commission        int64      `db:"commission" json:"commission"`
	PayoutToInstaller int64      `db:"payout_to_installer" json:"payoutToInstaller"`
	TotalPaidByGiver  int64      `db:"total_paid_by_giver" json:"totalPaidByGiver"`
	PayerID           uuid.UUID  `db:"payer_id" json:"payerId"`
	PayeeID           uuid.UUID  `db:"payee_id" json:"payeeId"`
	Description       *string    `db:"description" json:"description,omitempty"`
	GatewayOrderID    *string    `db:"gateway_order_id" json:"gatewayOrderId,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	FundedAt          *time.Time `db:"funded_at" json:"fundedAt,omitempty"`
	ReleasedAt        *time.Time `db:"released_at" json:"releasedAt,omitempty"`
	RefundedAt        *time.Time `db:"refunded_at" json:"refundedAt,omitempty"`
	FailedAt          *time.Time `db:"failed_at" json:"failedAt,omitempty"`
}

// EscrowSummary - сводка по деньгам заказа.
type EscrowSummary struct {
	Held     int64 `json:"held"`
	Released int64 `json:"released"`
	Refunded int64 `json:"refunded"`
	Active   int   `json:"activeTransactions"`
}

// Summarize сворачивает список транзакций заказа.
func Summarize(txns []EscrowTransaction) EscrowSummary {
	var s EscrowSummary
	for _, t := range txns {
		switch t.Status {
		case EscrowStatusFunded:
			s.Held += t.Amount
			s.Active++
		case EscrowStatusInitiated:
			s.Active++
		case EscrowStatusReleased:
			s.Released += t.Amount
			s.Active++
		case EscrowStatusRefunded:
			s.Refunded += t.Amount
			s.Active++
		}
	}
	return s
}
