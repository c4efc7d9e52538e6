package trigger

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
)

// Подписи для участников, чьё имя не удалось получить.
const (
	fallbackInstallerName = "An installer"
	fallbackAuthorName    = "Someone"
)

// NameFunc возвращает отображаемое имя пользователя или "", если его нет.
type NameFunc func(userID uuid.UUID) string

// Effects - что нужно сделать после фиксации изменения.
type Effects struct {
	Notifications   []models.NotificationIntent
	AwardReputation bool
}

// handler смотрит на пару снимков и добавляет свои эффекты.
type handler func(change models.JobChange, names NameFunc, out *Effects)

var handlers = []handler{
	onBidAdded,
	onMessageAdded,
	onDateChangeProposed,
	onDateChangeAnswered,
	onStatusChanged,
}

// Evaluate прогоняет изменение через все обработчики. Ввода-вывода нет:
// имена приходят через names, запись эффектов делает вызывающий.
func Evaluate(change models.JobChange, names NameFunc) Effects {
	var out Effects
	if change.After == nil {
		return out
	}
	for _, h := range handlers {
		h(change, names, &out)
	}
	return out
}

func (e *Effects) notify(userID uuid.UUID, event, title, body, link string) {
	if userID == uuid.Nil {
		return
	}
	e.Notifications = append(e.Notifications, models.NotificationIntent{
		UserID: userID,
		Event:  event,
		Title:  title,
		Body:   body,
		Link:   link,
	})
}

func nameOr(names NameFunc, userID uuid.UUID, fallback string) string {
	if names != nil && userID != uuid.Nil {
		if n := names(userID); n != "" {
			return n
		}
	}
	return fallback
}

func before(change models.JobChange) *models.Job {
	if change.Before != nil {
		return change.Before
	}
	return &models.Job{}
}

func onBidAdded(change models.JobChange, names NameFunc, out *Effects) {
	prev, job := before(change), change.After
	if len(job.Bids) <= len(prev.Bids) {
		return
	}
	bid := job.Bids[len(job.Bids)-1]
	name := nameOr(names, bid.InstallerID, fallbackInstallerName)
	out.notify(job.JobGiverID, "bid.created", "New Bid on Your Job!",
		fmt.Sprintf("%s placed a bid of ₹%d on your job: \"%s\"", name, bid.Amount, job.Title),
		models.JobLink(job.ID))
}

func onMessageAdded(change models.JobChange, names NameFunc, out *Effects) {
	prev, job := before(change), change.After
	if len(job.PrivateMessages) <= len(prev.PrivateMessages) {
		return
	}
	msg := job.PrivateMessages[len(job.PrivateMessages)-1]
	recipient, ok := counterpart(job, msg.AuthorID)
	if !ok {
		return
	}
	name := nameOr(names, msg.AuthorID, fallbackAuthorName)
	out.notify(recipient, "message.created", fmt.Sprintf("New Message from %s", name),
		fmt.Sprintf("You have a new message on job: \"%s\"", job.Title),
		models.JobLink(job.ID))
}

func onDateChangeProposed(change models.JobChange, names NameFunc, out *Effects) {
	prev, job := before(change).DateChangeProposal, change.After
	p := job.DateChangeProposal
	if p == nil || p.Status != valueobject.ProposalStatusPending {
		return
	}
	if prev != nil && prev.Status == valueobject.ProposalStatusPending && prev.ProposedAt.Equal(p.ProposedAt) {
		return
	}
	recipient, ok := counterpart(job, p.ProposedBy)
	if !ok {
		return
	}
	name := nameOr(names, p.ProposedBy, fallbackAuthorName)
	out.notify(recipient, "date_change.proposed", "Date Change Proposed",
		fmt.Sprintf("%s proposed a new start date (%s) for job: \"%s\"", name, p.NewDate.Format("02 Jan 2006"), job.Title),
		models.JobLink(job.ID))
}

func onDateChangeAnswered(change models.JobChange, _ NameFunc, out *Effects) {
	prev, job := before(change).DateChangeProposal, change.After
	p := job.DateChangeProposal
	if prev == nil || p == nil || prev.Status != valueobject.ProposalStatusPending || p.Status == valueobject.ProposalStatusPending {
		return
	}
	title, verb := "Date Change Accepted", "accepted"
	if p.Status == valueobject.ProposalStatusRejected {
		title, verb = "Date Change Rejected", "rejected"
	}
	out.notify(p.ProposedBy, "date_change."+verb, title,
		fmt.Sprintf("Your proposed start date for job: \"%s\" was %s.", job.Title, verb),
		models.JobLink(job.ID))
}

// onStatusChanged уведомляет о смене статуса. Предложения и их истечение
// уведомляются теми, кто их создаёт, поэтому Awarded и BiddingClosed здесь не обрабатываются.
func onStatusChanged(change models.JobChange, names NameFunc, out *Effects) {
	if !change.StatusChanged() {
		return
	}
	prev, job := before(change), change.After
	link := models.JobLink(job.ID)

	switch job.Status {
	case valueobject.JobStatusPendingFunding:
		name := fallbackInstallerName
		if job.AwardedInstallerID != nil {
			name = nameOr(names, *job.AwardedInstallerID, fallbackInstallerName)
		}
		out.notify(job.JobGiverID, "offer.accepted", "Offer Accepted",
			fmt.Sprintf("%s accepted your offer for \"%s\". Fund the job to get work started.", name, job.Title), link)

	case valueobject.JobStatusInProgress:
		if prev.Status != valueobject.JobStatusPendingFunding || job.AwardedInstallerID == nil {
			return
		}
		out.notify(*job.AwardedInstallerID, "job.funded", "Action Required: Start Work",
			fmt.Sprintf("Funds have been secured for job: %s. You can now begin work.", job.Title), link)

	case valueobject.JobStatusPendingConfirmation:
		out.notify(job.JobGiverID, "job.submitted", "Work Submitted for Review",
			fmt.Sprintf("The installer has marked job: %s as complete. Please review and approve.", job.Title), link)

	case valueobject.JobStatusCompleted:
		if job.AwardedInstallerID == nil {
			return
		}
		out.notify(*job.AwardedInstallerID, "payment.released", "Payment Released!",
			fmt.Sprintf("Great news! The payment for job: %s has been released to your account.", job.Title), link)
		out.AwardReputation = true

	case valueobject.JobStatusUnbid:
		out.notify(job.JobGiverID, "job.unbid", "No Bids Received",
			fmt.Sprintf("Bidding on \"%s\" closed without any bids. You can reopen it for bidding.", job.Title), link)

	case valueobject.JobStatusCancellationProposed:
		for _, id := range participantsExcept(job, change.Actor) {
			out.notify(id, "cancellation.proposed", "Cancellation Requested",
				fmt.Sprintf("The other party asked to cancel job: \"%s\". Please accept or reject.", job.Title), link)
		}

	case valueobject.JobStatusDisputed:
		for _, id := range participantsExcept(job, change.Actor) {
			out.notify(id, "dispute.raised", "Dispute Raised",
				fmt.Sprintf("A dispute has been raised on job: \"%s\". Our team will review it.", job.Title), link)
		}

	case valueobject.JobStatusCancelled:
		for _, id := range participantsExcept(job, change.Actor) {
			out.notify(id, "job.cancelled", "Job Cancelled",
				fmt.Sprintf("Job \"%s\" has been cancelled.", job.Title), link)
		}
	}
}

// counterpart - вторая сторона переписки. Пока исполнитель не выбран, у заказчика её нет.
func counterpart(job *models.Job, userID uuid.UUID) (uuid.UUID, bool) {
	if userID == job.JobGiverID {
		if job.AwardedInstallerID == nil {
			return uuid.Nil, false
		}
		return *job.AwardedInstallerID, true
	}
	return job.JobGiverID, true
}

func participantsExcept(job *models.Job, actor uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	if job.JobGiverID != actor {
		ids = append(ids, job.JobGiverID)
	}
	if job.AwardedInstallerID != nil && *job.AwardedInstallerID != actor {
		ids = append(ids, *job.AwardedInstallerID)
	}
	return ids
}
