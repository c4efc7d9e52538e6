package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
)

// ErrMalformedJob возвращается, если строка заказа не проходит проверку формы.
var ErrMalformedJob = errors.New("malformed job document")

// Bid - ставка установщика. Список ставок только дополняется.
type Bid struct {
	InstallerID    uuid.UUID `json:"installerId"`
	Amount         int64     `json:"amount"`
	Timestamp      time.Time `json:"timestamp"`
	CoverLetter    string    `json:"coverLetter"`
	WarrantyMonths *int      `json:"warrantyMonths,omitempty"`
	DurationDays   *int      `json:"durationDays,omitempty"`
}

type Bids []Bid

func (b Bids) Value() (driver.Value, error) { return jsonArrayValue(b, len(b) == 0) }
func (b *Bids) Scan(src interface{}) error  { return scanJSON(src, b) }

// PrivateMessage - сообщение в приватной переписке по заказу.
type PrivateMessage struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  uuid.UUID `json:"authorId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type PrivateMessages []PrivateMessage

func (m PrivateMessages) Value() (driver.Value, error) { return jsonArrayValue(m, len(m) == 0) }
func (m *PrivateMessages) Scan(src interface{}) error  { return scanJSON(src, m) }

// SelectedInstaller - кандидат на предложение и его место в очереди.
type SelectedInstaller struct {
	InstallerID uuid.UUID `json:"installerId"`
	Rank        int       `json:"rank"`
}

type SelectedInstallers []SelectedInstaller

func (s SelectedInstallers) Value() (driver.Value, error) { return jsonArrayValue(s, len(s) == 0) }
func (s *SelectedInstallers) Scan(src interface{}) error  { return scanJSON(src, s) }

// Without возвращает копию списка без указанного установщика.
func (s SelectedInstallers) Without(installerID uuid.UUID) SelectedInstallers {
	out := make(SelectedInstallers, 0, len(s))
	for _, c := range s {
		if c.InstallerID != installerID {
			out = append(out, c)
		}
	}
	return out
}

// Contains сообщает, есть ли установщик среди кандидатов.
func (s SelectedInstallers) Contains(installerID uuid.UUID) bool {
	for _, c := range s {
		if c.InstallerID == installerID {
			return true
		}
	}
	return false
}

// SortedByRank возвращает копию, упорядоченную по рангу (стабильно).
func (s SelectedInstallers) SortedByRank() SelectedInstallers {
	out := append(SelectedInstallers(nil), s...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// DateChangeProposal - предложение одной из сторон перенести дату начала работ.
type DateChangeProposal struct {
	ProposedBy uuid.UUID                  `json:"proposedBy"`
	NewDate    time.Time                  `json:"newDate"`
	Status     valueobject.ProposalStatus `json:"status"`
	ProposedAt time.Time                  `json:"proposedAt"`
}

func (p *DateChangeProposal) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func (p *DateChangeProposal) Scan(src interface{}) error { return scanJSON(src, p) }

// Job - заказ и всё состояние его жизненного цикла.
type Job struct {
	ID                       uuid.UUID                  `db:"id" json:"id"`
	Title                    string                     `db:"title" json:"title"`
	Status                   valueobject.JobStatus      `db:"status" json:"status"`
	JobGiverID               uuid.UUID                  `db:"job_giver_id" json:"jobGiverId"`
	AwardedInstallerID       *uuid.UUID                 `db:"awarded_installer_id" json:"awardedInstallerId,omitempty"`
	AwardStrategy            *valueobject.AwardStrategy `db:"award_strategy" json:"awardStrategy,omitempty"`
	SelectedInstallers       SelectedInstallers         `db:"selected_installers" json:"selectedInstallers"`
	DisqualifiedInstallerIDs pq.StringArray             `db:"disqualified_installer_ids" json:"disqualifiedInstallerIds"`
	Bids                     Bids                       `db:"bids" json:"bids"`
	PrivateMessages          PrivateMessages            `db:"private_messages" json:"privateMessages"`
	BiddingDeadline          *time.Time                 `db:"bidding_deadline" json:"biddingDeadline,omitempty"`
	AcceptanceDeadline       *time.Time                 `db:"acceptance_deadline" json:"acceptanceDeadline,omitempty"`
	FundingDeadline          *time.Time                 `db:"funding_deadline" json:"fundingDeadline,omitempty"`
	Rating                   *int                       `db:"rating" json:"rating,omitempty"`
	DateChangeProposal       *DateChangeProposal        `db:"date_change_proposal" json:"dateChangeProposal,omitempty"`
	JobStartDate             *time.Time                 `db:"job_start_date" json:"jobStartDate,omitempty"`
	DisputeID                *uuid.UUID                 `db:"dispute_id" json:"disputeId,omitempty"`
	StartOTPHash             *string                    `db:"start_otp_hash" json:"-"`
	WorkStartedAt            *time.Time                 `db:"work_started_at" json:"workStartedAt,omitempty"`
	CompletionSubmittedAt    *time.Time                 `db:"completion_submitted_at" json:"completionSubmittedAt,omitempty"`
	CancellationReason       *string                    `db:"cancellation_reason" json:"cancellationReason,omitempty"`
	CancellationProposedBy   *uuid.UUID                 `db:"cancellation_proposed_by" json:"cancellationProposedBy,omitempty"`
	StatusChangedAt          time.Time                  `db:"status_changed_at" json:"statusChangedAt"`
	CreatedAt                time.Time                  `db:"created_at" json:"createdAt"`
	UpdatedAt                time.Time                  `db:"updated_at" json:"updatedAt"`
}

// Validate проверяет форму заказа сразу после чтения из хранилища.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil || j.JobGiverID == uuid.Nil {
		return fmt.Errorf("%w: missing id or job giver", ErrMalformedJob)
	}
	if !j.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrMalformedJob, j.Status)
	}
	if j.AwardStrategy != nil && !j.AwardStrategy.IsValid() {
		return fmt.Errorf("%w: unknown award strategy %q", ErrMalformedJob, *j.AwardStrategy)
	}
	for _, c := range j.SelectedInstallers {
		if c.InstallerID == uuid.Nil || c.Rank < 1 {
			return fmt.Errorf("%w: bad candidate %v rank %d", ErrMalformedJob, c.InstallerID, c.Rank)
		}
	}
	for i, b := range j.Bids {
		if b.InstallerID == uuid.Nil {
			return fmt.Errorf("%w: bid %d has no installer", ErrMalformedJob, i)
		}
	}
	if p := j.DateChangeProposal; p != nil {
		if p.ProposedBy == uuid.Nil || !p.Status.IsValid() {
			return fmt.Errorf("%w: bad date change proposal", ErrMalformedJob)
		}
	}
	if j.Rating != nil && (*j.Rating < 1 || *j.Rating > 5) {
		return fmt.Errorf("%w: rating %d out of range", ErrMalformedJob, *j.Rating)
	}
	for _, id := range j.DisqualifiedInstallerIDs {
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("%w: bad disqualified installer %q", ErrMalformedJob, id)
		}
	}
	return nil
}

// Clone делает глубокую копию, чтобы снимок «до» не менялся вместе с заказом.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.AwardedInstallerID = cloneUUID(j.AwardedInstallerID)
	if j.AwardStrategy != nil {
		s := *j.AwardStrategy
		c.AwardStrategy = &s
	}
	c.SelectedInstallers = append(SelectedInstallers(nil), j.SelectedInstallers...)
	c.DisqualifiedInstallerIDs = append(pq.StringArray(nil), j.DisqualifiedInstallerIDs...)
	c.Bids = append(Bids(nil), j.Bids...)
	c.PrivateMessages = append(PrivateMessages(nil), j.PrivateMessages...)
	c.BiddingDeadline = cloneTime(j.BiddingDeadline)
	c.AcceptanceDeadline = cloneTime(j.AcceptanceDeadline)
	c.FundingDeadline = cloneTime(j.FundingDeadline)
	if j.Rating != nil {
		r := *j.Rating
		c.Rating = &r
	}
	if j.DateChangeProposal != nil {
		p := *j.DateChangeProposal
		c.DateChangeProposal = &p
	}
	c.JobStartDate = cloneTime(j.JobStartDate)
	c.DisputeID = cloneUUID(j.DisputeID)
	if j.StartOTPHash != nil {
		h := *j.StartOTPHash
		c.StartOTPHash = &h
	}
	c.WorkStartedAt = cloneTime(j.WorkStartedAt)
	c.CompletionSubmittedAt = cloneTime(j.CompletionSubmittedAt)
	if j.CancellationReason != nil {
		r := *j.CancellationReason
		c.CancellationReason = &r
	}
	c.CancellationProposedBy = cloneUUID(j.CancellationProposedBy)
	return &c
}

// IsAwardedTo сообщает, что текущее предложение принадлежит установщику.
func (j *Job) IsAwardedTo(installerID uuid.UUID) bool {
	return j.AwardedInstallerID != nil && *j.AwardedInstallerID == installerID
}

// IsParticipant - заказчик или выбранный установщик.
func (j *Job) IsParticipant(userID uuid.UUID) bool {
	return j.JobGiverID == userID || j.IsAwardedTo(userID)
}

// Counterpart возвращает вторую сторону заказа для userID, если она известна.
func (j *Job) Counterpart(userID uuid.UUID) (uuid.UUID, bool) {
	if userID == j.JobGiverID {
		if j.AwardedInstallerID == nil {
			return uuid.Nil, false
		}
		return *j.AwardedInstallerID, true
	}
	return j.JobGiverID, true
}

// IsDisqualified сообщает, что установщик отказался от предложения по этому заказу.
func (j *Job) IsDisqualified(installerID uuid.UUID) bool {
	for _, id := range j.DisqualifiedInstallerIDs {
		if id == installerID.String() {
			return true
		}
	}
	return false
}

// Disqualify запоминает отказ установщика (без повторов).
func (j *Job) Disqualify(installerID uuid.UUID) {
	if !j.IsDisqualified(installerID) {
		j.DisqualifiedInstallerIDs = append(j.DisqualifiedInstallerIDs, installerID.String())
	}
}

// HasBidFrom сообщает, делал ли установщик ставку.
func (j *Job) HasBidFrom(installerID uuid.UUID) bool {
	for _, b := range j.Bids {
		if b.InstallerID == installerID {
			return true
		}
	}
	return false
}

// ClearOffer снимает текущее предложение со всеми кандидатами.
func (j *Job) ClearOffer() {
	j.AwardedInstallerID = nil
	j.AcceptanceDeadline = nil
	j.SelectedInstallers = nil
}

// JobLink - относительная ссылка на страницу заказа в кабинете.
func JobLink(jobID uuid.UUID) string {
	return "/dashboard/jobs/" + jobID.String()
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
