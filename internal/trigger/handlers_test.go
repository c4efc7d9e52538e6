package trigger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
)

func baseJob() *models.Job {
	installer := uuid.New()
	return &models.Job{
		ID:                 uuid.New(),
		Title:              "Install ceiling fan",
		Status:             valueobject.JobStatusInProgress,
		JobGiverID:         uuid.New(),
		AwardedInstallerID: &installer,
	}
}

func noNames(uuid.UUID) string { return "" }

func TestEvaluate_BidAdded(t *testing.T) {
	job := baseJob()
	job.Status = valueobject.JobStatusOpenForBidding
	after := job.Clone()
	bidder := uuid.New()
	after.Bids = append(after.Bids, models.Bid{InstallerID: bidder, Amount: 2500})

	names := func(id uuid.UUID) string {
		if id == bidder {
			return "Ravi"
		}
		return ""
	}
	effects := Evaluate(models.JobChange{Before: job, After: after, Actor: bidder}, names)

	require.Len(t, effects.Notifications, 1)
	n := effects.Notifications[0]
	assert.Equal(t, job.JobGiverID, n.UserID)
	assert.Equal(t, "New Bid on Your Job!", n.Title)
	assert.Equal(t, "Ravi placed a bid of ₹2500 on your job: \"Install ceiling fan\"", n.Body)
	assert.Equal(t, "/dashboard/jobs/"+job.ID.String(), n.Link)
}

func TestEvaluate_BidAdded_UnknownInstaller(t *testing.T) {
	job := baseJob()
	after := job.Clone()
	after.Bids = append(after.Bids, models.Bid{InstallerID: uuid.New(), Amount: 10})

	effects := Evaluate(models.JobChange{Before: job, After: after}, noNames)
	require.Len(t, effects.Notifications, 1)
	assert.Contains(t, effects.Notifications[0].Body, "An installer placed a bid")
}

func TestEvaluate_MessageGoesToOtherParty(t *testing.T) {
	job := baseJob()

	fromGiver := job.Clone()
	fromGiver.PrivateMessages = append(fromGiver.PrivateMessages, models.PrivateMessage{AuthorID: job.JobGiverID, Content: "hi"})
	effects := Evaluate(models.JobChange{Before: job, After: fromGiver}, noNames)
	require.Len(t, effects.Notifications, 1)
	assert.Equal(t, *job.AwardedInstallerID, effects.Notifications[0].UserID)
	assert.Equal(t, "New Message from Someone", effects.Notifications[0].Title)

	fromInstaller := job.Clone()
	fromInstaller.PrivateMessages = append(fromInstaller.PrivateMessages, models.PrivateMessage{AuthorID: *job.AwardedInstallerID, Content: "on my way"})
	effects = Evaluate(models.JobChange{Before: job, After: fromInstaller}, noNames)
	require.Len(t, effects.Notifications, 1)
	assert.Equal(t, job.JobGiverID, effects.Notifications[0].UserID)
}

func TestEvaluate_DateChangeProposedAndAnswered(t *testing.T) {
	job := baseJob()
	proposer := *job.AwardedInstallerID
	proposed := job.Clone()
	proposed.DateChangeProposal = &models.DateChangeProposal{
		ProposedBy: proposer,
		NewDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Status:     valueobject.ProposalStatusPending,
		ProposedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	effects := Evaluate(models.JobChange{Before: job, After: proposed, Actor: proposer}, noNames)
	require.Len(t, effects.Notifications, 1)
	assert.Equal(t, job.JobGiverID, effects.Notifications[0].UserID)
	assert.Equal(t, "Date Change Proposed", effects.Notifications[0].Title)

	answered := proposed.Clone()
	answered.DateChangeProposal.Status = valueobject.ProposalStatusRejected
	effects = Evaluate(models.JobChange{Before: proposed, After: answered, Actor: job.JobGiverID}, noNames)
	require.Len(t, effects.Notifications, 1)
	assert.Equal(t, proposer, effects.Notifications[0].UserID)
	assert.Equal(t, "Date Change Rejected", effects.Notifications[0].Title)
}

func TestEvaluate_UnchangedProposalIsSilent(t *testing.T) {
	job := baseJob()
	job.DateChangeProposal = &models.DateChangeProposal{
		ProposedBy: job.JobGiverID,
		Status:     valueobject.ProposalStatusPending,
		ProposedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	after := job.Clone()
	after.Title = "Install two ceiling fans"

	effects := Evaluate(models.JobChange{Before: job, After: after}, noNames)
	assert.Empty(t, effects.Notifications)
}

func TestEvaluate_FundedNotifiesInstaller(t *testing.T) {
	job := baseJob()
	job.Status = valueobject.JobStatusPendingFunding
	after := job.Clone()
	after.Status = valueobject.JobStatusInProgress

	effects := Evaluate(models.JobChange{Before: job, After: after}, noNames)
	require.Len(t, effects.Notifications, 1)
	assert.Equal(t, "Action Required: Start Work", effects.Notifications[0].Title)
	assert.Equal(t, *job.AwardedInstallerID, effects.Notifications[0].UserID)
}

func TestEvaluate_RevisionDoesNotAskToStartAgain(t *testing.T) {
	job := baseJob()
	job.Status = valueobject.JobStatusPendingConfirmation
	after := job.Clone()
	after.Status = valueobject.JobStatusInProgress

	effects := Evaluate(models.JobChange{Before: job, After: after}, noNames)
	assert.Empty(t, effects.Notifications)
}

func TestEvaluate_CompletedAwardsReputation(t *testing.T) {
	job := baseJob()
	job.Status = valueobject.JobStatusPendingConfirmation
	after := job.Clone()
	after.Status = valueobject.JobStatusCompleted

	effects := Evaluate(models.JobChange{Before: job, After: after, Actor: job.JobGiverID}, noNames)
	assert.True(t, effects.AwardReputation)
	require.Len(t, effects.Notifications, 1)
	assert.Equal(t, "Payment Released!", effects.Notifications[0].Title)
}

func TestEvaluate_CancelledSkipsActor(t *testing.T) {
	job := baseJob()
	job.Status = valueobject.JobStatusPendingFunding
	after := job.Clone()
	after.Status = valueobject.JobStatusCancelled

	effects := Evaluate(models.JobChange{Before: job, After: after, Actor: job.JobGiverID}, noNames)
	require.Len(t, effects.Notifications, 1)
	assert.Equal(t, *job.AwardedInstallerID, effects.Notifications[0].UserID)
}

func TestEvaluate_OfferStatusesLeftToCallers(t *testing.T) {
	job := baseJob()
	job.Status = valueobject.JobStatusOpenForBidding
	job.AwardedInstallerID = nil

	awarded := job.Clone()
	awarded.Status = valueobject.JobStatusAwarded
	assert.Empty(t, Evaluate(models.JobChange{Before: job, After: awarded}, noNames).Notifications)

	closed := awarded.Clone()
	closed.Status = valueobject.JobStatusBiddingClosed
	assert.Empty(t, Evaluate(models.JobChange{Before: awarded, After: closed}, noNames).Notifications)
}

func TestEvaluate_NoStatusChangeNoStatusNotification(t *testing.T) {
	job := baseJob()
	job.Status = valueobject.JobStatusCompleted
	after := job.Clone()

	effects := Evaluate(models.JobChange{Before: job, After: after}, noNames)
	assert.False(t, effects.AwardReputation)
	assert.Empty(t, effects.Notifications)
}
