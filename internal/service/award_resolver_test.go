package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
)

func awardedJob(current uuid.UUID, candidates ...models.SelectedInstaller) *models.Job {
	expired := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return &models.Job{
		ID:                 uuid.New(),
		Title:              "Install solar panels",
		Status:             valueobject.JobStatusAwarded,
		JobGiverID:         uuid.New(),
		AwardedInstallerID: &current,
		AcceptanceDeadline: &expired,
		SelectedInstallers: candidates,
	}
}

func TestResolveExpiredOffer_CascadesToNextRank(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	job := awardedJob(a, models.SelectedInstaller{InstallerID: a, Rank: 1}, models.SelectedInstaller{InstallerID: b, Rank: 2})
	now := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)

	res, err := ResolveExpiredOffer(job, now, 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCascaded, res.Outcome)
	assert.Equal(t, b, res.NextInstaller)
	assert.Equal(t, valueobject.JobStatusAwarded, job.Status)
	require.NotNil(t, job.AwardedInstallerID)
	assert.Equal(t, b, *job.AwardedInstallerID)
	require.NotNil(t, job.AcceptanceDeadline)
	assert.Equal(t, now.Add(24*time.Hour), *job.AcceptanceDeadline)
	require.NotNil(t, res.Intent)
	assert.Equal(t, b, res.Intent.UserID)
	assert.Contains(t, res.Intent.Body, "24 hours")
}

func TestResolveExpiredOffer_RevertsWithoutSequencing(t *testing.T) {
	a := uuid.New()
	job := awardedJob(a, models.SelectedInstaller{InstallerID: a, Rank: 1})

	res, err := ResolveExpiredOffer(job, time.Now(), 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, OutcomeExhausted, res.Outcome)
	assert.Equal(t, valueobject.JobStatusBiddingClosed, job.Status)
	assert.Nil(t, job.AwardedInstallerID)
	assert.Nil(t, job.AcceptanceDeadline)
	assert.Empty(t, job.SelectedInstallers)
	require.NotNil(t, res.Intent)
	assert.Equal(t, job.JobGiverID, res.Intent.UserID)
}

func TestResolveExpiredOffer_PicksLowestRemainingRank(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	job := awardedJob(a,
		models.SelectedInstaller{InstallerID: d, Rank: 4},
		models.SelectedInstaller{InstallerID: a, Rank: 1},
		models.SelectedInstaller{InstallerID: c, Rank: 3},
		models.SelectedInstaller{InstallerID: b, Rank: 2},
	)

	res, err := ResolveExpiredOffer(job, time.Now(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, b, res.NextInstaller)
	assert.Len(t, job.SelectedInstallers, 3)
	assert.False(t, job.SelectedInstallers.Contains(a))
}

func TestResolveExpiredOffer_SkipsDisqualified(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	job := awardedJob(a,
		models.SelectedInstaller{InstallerID: a, Rank: 1},
		models.SelectedInstaller{InstallerID: b, Rank: 2},
		models.SelectedInstaller{InstallerID: c, Rank: 3},
	)
	job.Disqualify(b)

	res, err := ResolveExpiredOffer(job, time.Now(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, c, res.NextInstaller)
}

func TestResolveExpiredOffer_ExplicitSimultaneousNeverCascades(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	job := awardedJob(a, models.SelectedInstaller{InstallerID: a, Rank: 1}, models.SelectedInstaller{InstallerID: b, Rank: 2})
	strategy := valueobject.AwardStrategySimultaneous
	job.AwardStrategy = &strategy

	res, err := ResolveExpiredOffer(job, time.Now(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, res.Outcome)
	assert.Equal(t, valueobject.JobStatusBiddingClosed, job.Status)
}

func TestResolveExpiredOffer_RejectsNonAwarded(t *testing.T) {
	job := awardedJob(uuid.New())
	job.Status = valueobject.JobStatusPendingFunding

	_, err := ResolveExpiredOffer(job, time.Now(), time.Hour)
	assert.ErrorIs(t, err, valueobject.ErrIllegalTransition)
}

func TestResolveDecline_SequentialCascadesAndDisqualifies(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	job := awardedJob(a, models.SelectedInstaller{InstallerID: a, Rank: 1}, models.SelectedInstaller{InstallerID: b, Rank: 2})
	strategy := valueobject.AwardStrategySequential
	job.AwardStrategy = &strategy

	res, err := ResolveDecline(job, a, time.Now(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCascaded, res.Outcome)
	assert.Equal(t, b, res.NextInstaller)
	assert.True(t, job.IsDisqualified(a))
}

func TestResolveDecline_SimultaneousKeepsOfferOpenForOthers(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	now := time.Now()
	deadline := now.Add(10 * time.Hour)
	strategy := valueobject.AwardStrategySimultaneous
	job := &models.Job{
		ID:                 uuid.New(),
		Status:             valueobject.JobStatusAwarded,
		JobGiverID:         uuid.New(),
		AwardStrategy:      &strategy,
		AcceptanceDeadline: &deadline,
		SelectedInstallers: models.SelectedInstallers{{InstallerID: a, Rank: 1}, {InstallerID: b, Rank: 1}},
	}

	res, err := ResolveDecline(job, a, now, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Nil(t, res.Intent)
	assert.Equal(t, valueobject.JobStatusAwarded, job.Status)
	assert.Equal(t, models.SelectedInstallers{{InstallerID: b, Rank: 1}}, job.SelectedInstallers)

	res, err = ResolveDecline(job, b, now, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, res.Outcome)
	assert.Equal(t, valueobject.JobStatusBiddingClosed, job.Status)
}

func TestResolveDecline_QueuedCandidateLeavesCurrentOfferUntouched(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	job := awardedJob(a,
		models.SelectedInstaller{InstallerID: a, Rank: 1},
		models.SelectedInstaller{InstallerID: b, Rank: 2},
		models.SelectedInstaller{InstallerID: c, Rank: 3},
	)
	strategy := valueobject.AwardStrategySequential
	job.AwardStrategy = &strategy
	now := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	deadline := now.Add(2 * time.Hour)
	job.AcceptanceDeadline = &deadline

	res, err := ResolveDecline(job, c, now, 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Nil(t, res.Intent)
	assert.Equal(t, valueobject.JobStatusAwarded, job.Status)
	require.NotNil(t, job.AwardedInstallerID)
	assert.Equal(t, a, *job.AwardedInstallerID)
	assert.Equal(t, deadline, *job.AcceptanceDeadline)
	assert.True(t, job.IsDisqualified(c))
	assert.False(t, job.SelectedInstallers.Contains(c))
	assert.Len(t, job.SelectedInstallers, 2)
}
