package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/jobconnect-backend/internal/config"
	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobconnect-backend/internal/repository"
)

// mockJobRepo повторяет поведение JobRepository.Mutate: fn получает копию,
// ErrNoChange превращается в (nil, nil).
type mockJobRepo struct {
	mock.Mock
}

func (m *mockJobRepo) Create(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *mockJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *mockJobRepo) Mutate(ctx context.Context, id uuid.UUID, fn func(tx *sqlx.Tx, job *models.Job) error) (*models.JobChange, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	stored := args.Get(0).(*models.Job)
	after := stored.Clone()
	if err := fn(nil, after); err != nil {
		if errors.Is(err, repository.ErrNoChange) {
			return nil, nil
		}
		return nil, err
	}
	return &models.JobChange{Before: stored.Clone(), After: after}, nil
}

type mockEscrowWriter struct {
	mock.Mock
}

func (m *mockEscrowWriter) Create(ctx context.Context, _ *sqlx.Tx, txn *models.EscrowTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *mockEscrowWriter) CountActive(ctx context.Context, _ *sqlx.Tx, jobID uuid.UUID) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}

func (m *mockEscrowWriter) ReleaseForJob(ctx context.Context, _ *sqlx.Tx, jobID uuid.UUID) ([]models.EscrowTransaction, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]models.EscrowTransaction), args.Error(1)
}

func (m *mockEscrowWriter) RefundForJob(ctx context.Context, _ *sqlx.Tx, jobID uuid.UUID) ([]models.EscrowTransaction, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).([]models.EscrowTransaction), args.Error(1)
}

type mockDisputeWriter struct {
	mock.Mock
}

func (m *mockDisputeWriter) Create(ctx context.Context, _ *sqlx.Tx, d *models.Dispute) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDisputeWriter) Resolve(ctx context.Context, _ *sqlx.Tx, id uuid.UUID, resolution string, resolvedBy uuid.UUID) error {
	args := m.Called(ctx, id, resolution, resolvedBy)
	return args.Error(0)
}

type recordingHandler struct {
	changes []models.JobChange
}

func (h *recordingHandler) HandleChange(_ context.Context, change models.JobChange) {
	h.changes = append(h.changes, change)
}

type jobServiceDeps struct {
	jobs     *mockJobRepo
	escrow   *mockEscrowWriter
	disputes *mockDisputeWriter
	handler  *recordingHandler
	notifier *mockNotifier
	now      time.Time
}

var testLifecycle = config.LifecycleConfig{
	FundingWindow:      48 * time.Hour,
	FundingGrace:       48 * time.Hour,
	AwardCascadeWindow: 24 * time.Hour,
	AutoSettleAfter:    120 * time.Hour,
}

func newTestJobService() (*JobService, *jobServiceDeps) {
	d := &jobServiceDeps{
		jobs:     new(mockJobRepo),
		escrow:   new(mockEscrowWriter),
		disputes: new(mockDisputeWriter),
		handler:  &recordingHandler{},
		notifier: new(mockNotifier),
		now:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	svc := NewJobService(d.jobs, d.escrow, d.disputes, staticSettings{models.DefaultPlatformSettings()},
		d.handler, d.notifier, testLifecycle)
	svc.now = func() time.Time { return d.now }
	return svc, d
}

func openJob(giver uuid.UUID, bidders ...uuid.UUID) *models.Job {
	job := &models.Job{
		ID:         uuid.New(),
		Title:      "Wire the workshop",
		Status:     valueobject.JobStatusOpenForBidding,
		JobGiverID: giver,
	}
	for i, id := range bidders {
		job.Bids = append(job.Bids, models.Bid{InstallerID: id, Amount: int64(1000 + i)})
	}
	return job
}

func TestJobService_AddBid_Success(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer := uuid.New(), uuid.New()
	job := openJob(giver)
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)

	updated, err := svc.AddBid(ctx, job.ID, installer, BidInput{Amount: 1500, CoverLetter: "  ready tomorrow "})
	require.NoError(t, err)
	require.Len(t, updated.Bids, 1)
	assert.Equal(t, "ready tomorrow", updated.Bids[0].CoverLetter)
	require.Len(t, d.handler.changes, 1)
	assert.Equal(t, installer, d.handler.changes[0].Actor)
}

func TestJobService_AddBid_Rejections(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer := uuid.New(), uuid.New()
	job := openJob(giver, installer)
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)

	_, err := svc.AddBid(ctx, job.ID, installer, BidInput{Amount: 100})
	assert.True(t, apperror.IsConflict(err))

	_, err = svc.AddBid(ctx, job.ID, giver, BidInput{Amount: 100})
	assert.True(t, apperror.IsForbidden(err))

	_, err = svc.AddBid(ctx, job.ID, uuid.New(), BidInput{Amount: 0})
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, d.handler.changes)
}

func TestJobService_Award_Sequential(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, a, b := uuid.New(), uuid.New(), uuid.New()
	job := openJob(giver, a, b)
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)
	d.notifier.On("NotifyAll", ctx, mock.MatchedBy(func(in []models.NotificationIntent) bool {
		return len(in) == 1 && in[0].UserID == b
	})).Return()

	updated, err := svc.Award(ctx, job.ID, giver, AwardInput{InstallerIDs: []uuid.UUID{b, a}, Strategy: valueobject.AwardStrategySequential})
	require.NoError(t, err)

	assert.Equal(t, valueobject.JobStatusAwarded, updated.Status)
	assert.Equal(t, models.SelectedInstallers{{InstallerID: b, Rank: 1}, {InstallerID: a, Rank: 2}}, updated.SelectedInstallers)
	require.NotNil(t, updated.AwardedInstallerID)
	assert.Equal(t, b, *updated.AwardedInstallerID)
	assert.Equal(t, d.now.Add(24*time.Hour), *updated.AcceptanceDeadline)
	d.notifier.AssertExpectations(t)
}

func TestJobService_Award_SimultaneousOffersEveryone(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, a, b := uuid.New(), uuid.New(), uuid.New()
	job := openJob(giver, a, b)
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)
	d.notifier.On("NotifyAll", ctx, mock.MatchedBy(func(in []models.NotificationIntent) bool { return len(in) == 2 })).Return()

	updated, err := svc.Award(ctx, job.ID, giver, AwardInput{InstallerIDs: []uuid.UUID{a, b}, Strategy: valueobject.AwardStrategySimultaneous})
	require.NoError(t, err)

	assert.Nil(t, updated.AwardedInstallerID)
	for _, c := range updated.SelectedInstallers {
		assert.Equal(t, 1, c.Rank)
	}
}

func TestJobService_Award_RequiresBid(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver := uuid.New()
	job := openJob(giver)
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)

	_, err := svc.Award(ctx, job.ID, giver, AwardInput{InstallerIDs: []uuid.UUID{uuid.New()}, Strategy: valueobject.AwardStrategySequential})
	assert.True(t, apperror.IsValidation(err))
	d.notifier.AssertNotCalled(t, "NotifyAll", mock.Anything, mock.Anything)
}

func offeredJob(now time.Time, giver, installer uuid.UUID) *models.Job {
	job := openJob(giver, installer)
	deadline := now.Add(3 * time.Hour)
	strategy := valueobject.AwardStrategySequential
	job.Status = valueobject.JobStatusAwarded
	job.AwardStrategy = &strategy
	job.AwardedInstallerID = &installer
	job.AcceptanceDeadline = &deadline
	job.SelectedInstallers = models.SelectedInstallers{{InstallerID: installer, Rank: 1}}
	return job
}

func TestJobService_AcceptOffer_Success(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer := uuid.New(), uuid.New()
	job := offeredJob(d.now, giver, installer)
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)

	updated, err := svc.AcceptOffer(ctx, job.ID, installer)
	require.NoError(t, err)

	assert.Equal(t, valueobject.JobStatusPendingFunding, updated.Status)
	assert.Nil(t, updated.AcceptanceDeadline)
	assert.Empty(t, updated.SelectedInstallers)
	assert.Equal(t, d.now.Add(48*time.Hour), *updated.FundingDeadline)
	assert.True(t, d.handler.changes[0].Became(valueobject.JobStatusPendingFunding))
}

func TestJobService_AcceptOffer_HeldBySomeoneElse(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	job := offeredJob(d.now, uuid.New(), uuid.New())
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)

	_, err := svc.AcceptOffer(ctx, job.ID, uuid.New())
	assert.Equal(t, apperror.ErrAlreadyAwarded, err)
}

func TestJobService_AcceptOffer_AfterDeadline(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	installer := uuid.New()
	job := offeredJob(d.now, uuid.New(), installer)
	d.now = d.now.Add(4 * time.Hour)
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)

	_, err := svc.AcceptOffer(ctx, job.ID, installer)
	assert.True(t, apperror.IsConflict(err))
}

func TestJobService_AcceptOffer_WrongStatusIsIllegalTransition(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	installer := uuid.New()
	job := openJob(uuid.New(), installer)
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)

	_, err := svc.AcceptOffer(ctx, job.ID, installer)
	assert.True(t, apperror.IsConflict(err))
	assert.ErrorIs(t, err, valueobject.ErrIllegalTransition)
}

func TestJobService_DeclineOffer_CascadesAndNotifies(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, a, b := uuid.New(), uuid.New(), uuid.New()
	job := offeredJob(d.now, giver, a)
	job.Bids = append(job.Bids, models.Bid{InstallerID: b, Amount: 900})
	job.SelectedInstallers = append(job.SelectedInstallers, models.SelectedInstaller{InstallerID: b, Rank: 2})
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)
	d.notifier.On("Notify", ctx, mock.MatchedBy(func(i models.NotificationIntent) bool { return i.UserID == b })).Return()

	updated, err := svc.DeclineOffer(ctx, job.ID, a)
	require.NoError(t, err)
	assert.Equal(t, b, *updated.AwardedInstallerID)
	assert.True(t, updated.IsDisqualified(a))
	d.notifier.AssertExpectations(t)
}

func TestJobService_DeclineOffer_QueuedCandidateDoesNotRenotifyHolder(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, a, b := uuid.New(), uuid.New(), uuid.New()
	job := offeredJob(d.now, giver, a)
	job.Bids = append(job.Bids, models.Bid{InstallerID: b, Amount: 900})
	job.SelectedInstallers = append(job.SelectedInstallers, models.SelectedInstaller{InstallerID: b, Rank: 2})
	deadline := *job.AcceptanceDeadline
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)

	updated, err := svc.DeclineOffer(ctx, job.ID, b)
	require.NoError(t, err)

	assert.Equal(t, a, *updated.AwardedInstallerID)
	assert.Equal(t, deadline, *updated.AcceptanceDeadline)
	assert.True(t, updated.IsDisqualified(b))
	assert.False(t, updated.SelectedInstallers.Contains(b))
	d.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func pendingFundingJob(now time.Time, giver, installer uuid.UUID, amount int64) *models.Job {
	job := openJob(giver)
	job.Bids = models.Bids{{InstallerID: installer, Amount: amount}}
	deadline := now.Add(48 * time.Hour)
	job.Status = valueobject.JobStatusPendingFunding
	job.AwardedInstallerID = &installer
	job.FundingDeadline = &deadline
	return job
}

func TestJobService_FundThenStartWork(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer := uuid.New(), uuid.New()
	job := pendingFundingJob(d.now, giver, installer, 1001)

	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil).Once()
	d.escrow.On("Create", ctx, mock.MatchedBy(func(txn *models.EscrowTransaction) bool {
		return txn.Kind == models.EscrowKindPrimary && txn.Status == models.EscrowStatusFunded &&
			txn.Amount == 1001 && txn.JobGiverFee == 26 && txn.Commission == 51 &&
			txn.TotalPaidByGiver == 1027 && txn.PayoutToInstaller == 950 &&
			txn.PayerID == giver && txn.PayeeID == installer
	})).Return(nil)

	res, err := svc.Fund(ctx, job.ID, giver, "order_1")
	require.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusInProgress, res.Job.Status)
	assert.Len(t, res.StartOTP, startOTPDigits)
	require.NotNil(t, res.Job.StartOTPHash)
	assert.NotEqual(t, res.StartOTP, *res.Job.StartOTPHash)

	d.jobs.On("Mutate", ctx, job.ID).Return(res.Job, nil)
	d.escrow.On("CountActive", ctx, job.ID).Return(1, nil)

	_, err = svc.StartWork(ctx, job.ID, installer, "not-it")
	assert.Equal(t, apperror.ErrInvalidOTP, err)

	started, err := svc.StartWork(ctx, job.ID, installer, res.StartOTP)
	require.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusInProgress, started.Status)
	assert.NotNil(t, started.WorkStartedAt)
	assert.Nil(t, started.StartOTPHash)
}

func TestJobService_Fund_SecondPrimaryRejected(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer := uuid.New(), uuid.New()
	job := pendingFundingJob(d.now, giver, installer, 500)
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)
	d.escrow.On("Create", ctx, mock.Anything).Return(repository.ErrEscrowAlreadyFunded)

	_, err := svc.Fund(ctx, job.ID, giver, "")
	assert.True(t, apperror.IsConflict(err))
	assert.Empty(t, d.handler.changes)
}

func TestJobService_AddFunds_CreatesInitiatedAddOn(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer := uuid.New(), uuid.New()
	job := pendingFundingJob(d.now, giver, installer, 500)
	job.Status = valueobject.JobStatusInProgress
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)
	d.escrow.On("Create", ctx, mock.MatchedBy(func(txn *models.EscrowTransaction) bool {
		return txn.Kind == models.EscrowKindAddOn && txn.Status == models.EscrowStatusInitiated && txn.Amount == 200
	})).Return(nil)

	txn, err := svc.AddFunds(ctx, job.ID, giver, 200, "extra cabling")
	require.NoError(t, err)
	assert.Equal(t, "extra cabling", *txn.Description)
}

func TestJobService_SubmitAndApprove(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer := uuid.New(), uuid.New()
	job := pendingFundingJob(d.now, giver, installer, 500)
	job.Status = valueobject.JobStatusInProgress
	started := d.now.Add(-time.Hour)
	job.WorkStartedAt = &started

	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil).Once()
	submitted, err := svc.SubmitCompletion(ctx, job.ID, installer)
	require.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusPendingConfirmation, submitted.Status)

	five := 5
	d.jobs.On("Mutate", ctx, job.ID).Return(submitted, nil).Once()
	d.escrow.On("ReleaseForJob", ctx, job.ID).Return([]models.EscrowTransaction{{Amount: 500}}, nil)
	done, err := svc.Approve(ctx, job.ID, giver, &five)
	require.NoError(t, err)

	assert.Equal(t, valueobject.JobStatusCompleted, done.Status)
	assert.Equal(t, 5, *done.Rating)
	require.Len(t, d.handler.changes, 2)
	assert.True(t, d.handler.changes[1].Became(valueobject.JobStatusCompleted))
}

func TestJobService_RequestRevision_AddsNote(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer := uuid.New(), uuid.New()
	job := pendingFundingJob(d.now, giver, installer, 500)
	job.Status = valueobject.JobStatusPendingConfirmation
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)

	updated, err := svc.RequestRevision(ctx, job.ID, giver, "socket is loose")
	require.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusInProgress, updated.Status)
	assert.Nil(t, updated.CompletionSubmittedAt)
	require.Len(t, updated.PrivateMessages, 1)
	assert.Equal(t, giver, updated.PrivateMessages[0].AuthorID)
}

func TestJobService_Cancel(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer := uuid.New(), uuid.New()

	funding := pendingFundingJob(d.now, giver, installer, 500)
	d.jobs.On("Mutate", ctx, funding.ID).Return(funding, nil)
	d.escrow.On("RefundForJob", ctx, funding.ID).Return([]models.EscrowTransaction{}, nil)

	cancelled, err := svc.Cancel(ctx, funding.ID, giver, "changed plans")
	require.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusCancelled, cancelled.Status)
	assert.Equal(t, "changed plans", *cancelled.CancellationReason)

	running := pendingFundingJob(d.now, giver, installer, 500)
	running.Status = valueobject.JobStatusInProgress
	d.jobs.On("Mutate", ctx, running.ID).Return(running, nil)

	_, err = svc.Cancel(ctx, running.ID, giver, "")
	assert.ErrorIs(t, err, valueobject.ErrIllegalTransition)
}

func TestJobService_MutualCancellation(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer := uuid.New(), uuid.New()
	job := pendingFundingJob(d.now, giver, installer, 500)
	job.Status = valueobject.JobStatusInProgress

	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil).Once()
	proposed, err := svc.ProposeCancellation(ctx, job.ID, installer, "materials unavailable")
	require.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusCancellationProposed, proposed.Status)

	d.jobs.On("Mutate", ctx, job.ID).Return(proposed, nil)
	_, err = svc.AcceptCancellation(ctx, job.ID, installer)
	assert.Equal(t, apperror.ErrOwnProposal, err)

	d.escrow.On("RefundForJob", ctx, job.ID).Return([]models.EscrowTransaction{{Amount: 500}}, nil)
	cancelled, err := svc.AcceptCancellation(ctx, job.ID, giver)
	require.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusCancelled, cancelled.Status)
	d.escrow.AssertCalled(t, "RefundForJob", ctx, job.ID)
}

func TestJobService_DisputeRaiseAndRefund(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer, admin := uuid.New(), uuid.New(), uuid.New()
	job := pendingFundingJob(d.now, giver, installer, 500)
	job.Status = valueobject.JobStatusPendingConfirmation

	var disputeID uuid.UUID
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil).Once()
	d.disputes.On("Create", ctx, mock.MatchedBy(func(dp *models.Dispute) bool {
		disputeID = dp.ID
		return dp.RaisedBy == giver && dp.Status == models.DisputeStatusOpen
	})).Return(nil)

	disputed, err := svc.RaiseDispute(ctx, job.ID, giver, "work not done")
	require.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusDisputed, disputed.Status)
	assert.Equal(t, disputeID, *disputed.DisputeID)

	d.jobs.On("Mutate", ctx, job.ID).Return(disputed, nil)
	d.disputes.On("Resolve", ctx, disputeID, models.DisputeResolutionRefund, admin).Return(nil)
	d.escrow.On("RefundForJob", ctx, job.ID).Return([]models.EscrowTransaction{{Amount: 500}}, nil)

	resolved, err := svc.ResolveDispute(ctx, job.ID, admin, models.DisputeResolutionRefund, nil)
	require.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusCancelled, resolved.Status)

	_, err = svc.ResolveDispute(ctx, job.ID, admin, "split", nil)
	assert.True(t, apperror.IsValidation(err))
}

func TestJobService_ResolveDispute_ResumeRequiresEscrow(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer, admin := uuid.New(), uuid.New(), uuid.New()
	job := pendingFundingJob(d.now, giver, installer, 500)
	disputeID := uuid.New()
	job.Status = valueobject.JobStatusDisputed
	job.DisputeID = &disputeID

	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)
	d.disputes.On("Resolve", ctx, disputeID, models.DisputeResolutionResume, admin).Return(nil)
	d.escrow.On("CountActive", ctx, job.ID).Return(0, nil).Once()

	_, err := svc.ResolveDispute(ctx, job.ID, admin, models.DisputeResolutionResume, nil)
	assert.True(t, apperror.IsConflict(err))
	assert.Empty(t, d.handler.changes)

	d.escrow.On("CountActive", ctx, job.ID).Return(1, nil).Once()

	resumed, err := svc.ResolveDispute(ctx, job.ID, admin, models.DisputeResolutionResume, nil)
	require.NoError(t, err)
	assert.Equal(t, valueobject.JobStatusInProgress, resumed.Status)
}

func TestJobService_DateChangeFlow(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer := uuid.New(), uuid.New()
	job := pendingFundingJob(d.now, giver, installer, 500)
	job.Status = valueobject.JobStatusInProgress
	newDate := d.now.Add(72 * time.Hour)

	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil).Once()
	proposed, err := svc.ProposeDateChange(ctx, job.ID, installer, newDate)
	require.NoError(t, err)
	require.NotNil(t, proposed.DateChangeProposal)

	d.jobs.On("Mutate", ctx, job.ID).Return(proposed, nil)
	_, err = svc.ProposeDateChange(ctx, job.ID, giver, newDate)
	assert.Equal(t, apperror.ErrProposalPending, err)

	_, err = svc.AcceptDateChange(ctx, job.ID, installer)
	assert.Equal(t, apperror.ErrOwnProposal, err)

	accepted, err := svc.AcceptDateChange(ctx, job.ID, giver)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusAccepted, accepted.DateChangeProposal.Status)
	assert.Equal(t, newDate, *accepted.JobStartDate)
}

func TestJobService_DismissDateChange_NothingToDismiss(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	giver, installer := uuid.New(), uuid.New()
	job := pendingFundingJob(d.now, giver, installer, 500)
	d.jobs.On("Mutate", ctx, job.ID).Return(job, nil)
	d.jobs.On("GetByID", ctx, job.ID).Return(job, nil)

	got, err := svc.DismissDateChange(ctx, job.ID, giver)
	require.NoError(t, err)
	assert.Equal(t, job, got)
	assert.Empty(t, d.handler.changes)
}

func TestJobService_GetJob_NotFound(t *testing.T) {
	svc, d := newTestJobService()
	ctx := context.Background()
	id := uuid.New()
	d.jobs.On("GetByID", ctx, id).Return(nil, repository.ErrJobNotFound)

	_, err := svc.GetJob(ctx, id)
	assert.True(t, apperror.IsNotFound(err))
}
