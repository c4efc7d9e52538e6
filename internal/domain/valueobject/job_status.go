package valueobject

import (
	"errors"
	"fmt"

	"github.com/ignatzorin/jobconnect-backend/internal/pkg/apperror"
)

// JobStatus хранится в БД строкой в том виде, в каком её показывает интерфейс.
type JobStatus string

const (
	JobStatusOpenForBidding       JobStatus = "Open for Bidding"
	JobStatusBiddingClosed        JobStatus = "Bidding Closed"
	JobStatusUnbid                JobStatus = "Unbid"
	JobStatusAwarded              JobStatus = "Awarded"
	JobStatusPendingFunding       JobStatus = "Pending Funding"
	JobStatusInProgress           JobStatus = "In Progress"
	JobStatusPendingConfirmation  JobStatus = "Pending Confirmation"
	JobStatusCompleted            JobStatus = "Completed"
	JobStatusCancelled            JobStatus = "Cancelled"
	JobStatusDisputed             JobStatus = "Disputed"
	JobStatusNeedsAssistance      JobStatus = "Needs Assistance"
	JobStatusCancellationProposed JobStatus = "Cancellation Proposed"
)

// AllJobStatuses перечисляет статусы в порядке жизненного цикла.
var AllJobStatuses = []JobStatus{
	JobStatusOpenForBidding,
	JobStatusBiddingClosed,
	JobStatusUnbid,
	JobStatusAwarded,
	JobStatusPendingFunding,
	JobStatusInProgress,
	JobStatusPendingConfirmation,
	JobStatusCompleted,
	JobStatusCancelled,
	JobStatusDisputed,
	JobStatusNeedsAssistance,
	JobStatusCancellationProposed,
}

func (s JobStatus) IsValid() bool {
	for _, known := range AllJobStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsFunded - статусы, в которых по заказу обязана быть хотя бы одна не-Failed транзакция.
func (s JobStatus) IsFunded() bool {
	switch s {
	case JobStatusInProgress, JobStatusPendingConfirmation, JobStatusCompleted,
		JobStatusDisputed, JobStatusNeedsAssistance, JobStatusCancellationProposed:
		return true
	}
	return false
}

// JobEvent - событие, которое может сдвинуть заказ по жизненному циклу.
type JobEvent string

const (
	EventAward                JobEvent = "award"
	EventCloseBidding         JobEvent = "close_bidding"
	EventNoBids               JobEvent = "no_bids"
	EventReopenBidding        JobEvent = "reopen_bidding"
	EventOfferAccepted        JobEvent = "offer_accepted"
	EventOfferCascaded        JobEvent = "offer_cascaded"
	EventOffersExhausted      JobEvent = "offers_exhausted"
	EventFundsConfirmed       JobEvent = "funds_confirmed"
	EventWorkStarted          JobEvent = "work_started"
	EventCompletionSubmitted  JobEvent = "completion_submitted"
	EventCompletionApproved   JobEvent = "completion_approved"
	EventRevisionRequested    JobEvent = "revision_requested"
	EventDisputeRaised        JobEvent = "dispute_raised"
	EventCancel               JobEvent = "cancel"
	EventAssistanceRequested  JobEvent = "assistance_requested"
	EventAssistanceResolved   JobEvent = "assistance_resolved"
	EventCancellationProposed JobEvent = "cancellation_proposed"
	EventCancellationAccepted JobEvent = "cancellation_accepted"
	EventCancellationRejected JobEvent = "cancellation_rejected"
	EventDisputeReleased      JobEvent = "dispute_released"
	EventDisputeRefunded      JobEvent = "dispute_refunded"
	EventDisputeResumed       JobEvent = "dispute_resumed"
)

// ErrIllegalTransition возвращается, если событие недопустимо в текущем статусе.
var ErrIllegalTransition = errors.New("illegal job transition")

// preInProgress - статусы, из которых заказ можно просто отменить.
var preInProgress = []JobStatus{
	JobStatusOpenForBidding,
	JobStatusBiddingClosed,
	JobStatusUnbid,
	JobStatusAwarded,
	JobStatusPendingFunding,
}

// jobTransitions - единственный источник допустимых переходов: событие -> (из -> в).
var jobTransitions = map[JobEvent]map[JobStatus]JobStatus{
	EventAward: {
		JobStatusOpenForBidding: JobStatusAwarded,
		JobStatusBiddingClosed:  JobStatusAwarded,
	},
	EventCloseBidding:  {JobStatusOpenForBidding: JobStatusBiddingClosed},
	EventNoBids:        {JobStatusOpenForBidding: JobStatusUnbid},
	EventReopenBidding: {JobStatusUnbid: JobStatusOpenForBidding, JobStatusBiddingClosed: JobStatusOpenForBidding},

	EventOfferAccepted:   {JobStatusAwarded: JobStatusPendingFunding},
	EventOfferCascaded:   {JobStatusAwarded: JobStatusAwarded},
	EventOffersExhausted: {JobStatusAwarded: JobStatusBiddingClosed},

	EventFundsConfirmed:      {JobStatusPendingFunding: JobStatusInProgress},
	EventWorkStarted:         {JobStatusInProgress: JobStatusInProgress},
	EventCompletionSubmitted: {JobStatusInProgress: JobStatusPendingConfirmation},
	EventCompletionApproved:  {JobStatusPendingConfirmation: JobStatusCompleted},
	EventRevisionRequested:   {JobStatusPendingConfirmation: JobStatusInProgress},

	EventDisputeRaised: {
		JobStatusInProgress:          JobStatusDisputed,
		JobStatusPendingConfirmation: JobStatusDisputed,
	},
	EventDisputeReleased: {JobStatusDisputed: JobStatusCompleted},
	EventDisputeRefunded: {JobStatusDisputed: JobStatusCancelled},
	EventDisputeResumed:  {JobStatusDisputed: JobStatusInProgress},

	EventAssistanceRequested:  {JobStatusInProgress: JobStatusNeedsAssistance},
	EventAssistanceResolved:   {JobStatusNeedsAssistance: JobStatusInProgress},
	EventCancellationProposed: {JobStatusInProgress: JobStatusCancellationProposed},
	EventCancellationAccepted: {JobStatusCancellationProposed: JobStatusCancelled},
	EventCancellationRejected: {JobStatusCancellationProposed: JobStatusInProgress},
}

func init() {
	cancel := make(map[JobStatus]JobStatus, len(preInProgress))
	for _, s := range preInProgress {
		cancel[s] = JobStatusCancelled
	}
	jobTransitions[EventCancel] = cancel
}

// Next возвращает статус, в который переводит событие, либо ErrIllegalTransition.
func (s JobStatus) Next(event JobEvent) (JobStatus, error) {
	edges, ok := jobTransitions[event]
	if !ok {
		return "", fmt.Errorf("%w: unknown event %q", ErrIllegalTransition, event)
	}
	next, ok := edges[s]
	if !ok {
		return "", fmt.Errorf("%w: %q does not accept %q", ErrIllegalTransition, s, event)
	}
	return next, nil
}

// CanTransitionTo проверяет, что между статусами есть хотя бы одно ребро.
func (s JobStatus) CanTransitionTo(newStatus JobStatus) bool {
	for _, edges := range jobTransitions {
		if next, ok := edges[s]; ok && next == newStatus {
			return true
		}
	}
	return false
}

// Events возвращает все события, известные автомату.
func Events() []JobEvent {
	events := make([]JobEvent, 0, len(jobTransitions))
	for e := range jobTransitions {
		events = append(events, e)
	}
	return events
}

// AwardStrategy - как раздаются предложения выбранным установщикам.
type AwardStrategy string

const (
	AwardStrategySequential   AwardStrategy = "sequential"
	AwardStrategySimultaneous AwardStrategy = "simultaneous"
)

func (s AwardStrategy) IsValid() bool {
	return s == AwardStrategySequential || s == AwardStrategySimultaneous
}

func NewAwardStrategy(strategy string) (AwardStrategy, error) {
	s := AwardStrategy(strategy)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректная стратегия выбора исполнителя")
	}
	return s, nil
}

// ProposalStatus - состояние предложения о переносе даты.
type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalStatusPending, ProposalStatusAccepted, ProposalStatusRejected:
		return true
	}
	return false
}
