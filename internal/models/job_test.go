package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
)

func validJob() *Job {
	return &Job{
		ID:         uuid.New(),
		Title:      "Установка солнечных панелей",
		Status:     valueobject.JobStatusOpenForBidding,
		JobGiverID: uuid.New(),
	}
}

func TestJob_Validate(t *testing.T) {
	assert.NoError(t, validJob().Validate())

	j := validJob()
	j.Status = "open"
	assert.ErrorIs(t, j.Validate(), ErrMalformedJob)

	j = validJob()
	j.SelectedInstallers = SelectedInstallers{{InstallerID: uuid.New(), Rank: 0}}
	assert.ErrorIs(t, j.Validate(), ErrMalformedJob)

	j = validJob()
	j.DateChangeProposal = &DateChangeProposal{ProposedBy: uuid.New(), Status: "maybe"}
	assert.ErrorIs(t, j.Validate(), ErrMalformedJob)

	j = validJob()
	rating := 6
	j.Rating = &rating
	assert.ErrorIs(t, j.Validate(), ErrMalformedJob)

	j = validJob()
	j.DisqualifiedInstallerIDs = []string{"not-a-uuid"}
	assert.ErrorIs(t, j.Validate(), ErrMalformedJob)
}

func TestJob_CloneIsDeep(t *testing.T) {
	installer := uuid.New()
	deadline := time.Now()
	j := validJob()
	j.AwardedInstallerID = &installer
	j.AcceptanceDeadline = &deadline
	j.SelectedInstallers = SelectedInstallers{{InstallerID: installer, Rank: 1}}
	j.Bids = Bids{{InstallerID: installer, Amount: 100}}
	j.DateChangeProposal = &DateChangeProposal{ProposedBy: installer, Status: valueobject.ProposalStatusPending}

	c := j.Clone()
	*j.AwardedInstallerID = uuid.New()
	j.AcceptanceDeadline = nil
	j.SelectedInstallers[0].Rank = 9
	j.Bids = append(j.Bids, Bid{InstallerID: uuid.New()})
	j.DateChangeProposal.Status = valueobject.ProposalStatusAccepted

	require.NotNil(t, c.AwardedInstallerID)
	assert.Equal(t, installer, *c.AwardedInstallerID)
	assert.NotNil(t, c.AcceptanceDeadline)
	assert.Equal(t, 1, c.SelectedInstallers[0].Rank)
	assert.Len(t, c.Bids, 1)
	assert.Equal(t, valueobject.ProposalStatusPending, c.DateChangeProposal.Status)
}

func TestSelectedInstallers_WithoutAndSort(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	list := SelectedInstallers{{a, 3}, {b, 1}, {c, 2}}

	rest := list.Without(b)
	assert.Len(t, rest, 2)
	assert.False(t, rest.Contains(b))

	sorted := list.SortedByRank()
	assert.Equal(t, []uuid.UUID{b, c, a}, []uuid.UUID{sorted[0].InstallerID, sorted[1].InstallerID, sorted[2].InstallerID})
	assert.Equal(t, a, list[0].InstallerID, "исходный список не меняется")
}

func TestJob_DisqualifyOnce(t *testing.T) {
	j := validJob()
	id := uuid.New()
	j.Disqualify(id)
	j.Disqualify(id)
	assert.Len(t, j.DisqualifiedInstallerIDs, 1)
	assert.True(t, j.IsDisqualified(id))
}

func TestJob_Counterpart(t *testing.T) {
	j := validJob()
	_, ok := j.Counterpart(j.JobGiverID)
	assert.False(t, ok)

	installer := uuid.New()
	j.AwardedInstallerID = &installer
	other, ok := j.Counterpart(j.JobGiverID)
	assert.True(t, ok)
	assert.Equal(t, installer, other)

	other, _ = j.Counterpart(installer)
	assert.Equal(t, j.JobGiverID, other)
}

func TestBids_ValueNilIsEmptyArray(t *testing.T) {
	v, err := Bids(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)

	var b Bids
	require.NoError(t, b.Scan([]byte(`[{"installerId":"`+uuid.Nil.String()+`","amount":5}]`)))
	assert.Equal(t, int64(5), b[0].Amount)
}

func TestDateChangeProposal_NilValue(t *testing.T) {
	var p *DateChangeProposal
	v, err := p.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}
