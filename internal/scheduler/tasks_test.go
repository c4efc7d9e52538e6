package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/jobconnect-backend/internal/config"
	"github.com/ignatzorin/jobconnect-backend/internal/service"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, sweep string) (*service.SweepReport, error) {
	args := m.Called(ctx, sweep)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SweepReport), args.Error(1)
}

func TestEntries_SkipsDisabled(t *testing.T) {
	entries := Entries(config.SchedulerConfig{
		AwardSweepSpec:    "@every 1h",
		UnfundedSweepSpec: "@every 6h",
		MonitorSweepSpec:  "",
	})

	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Spec: "@every 1h", Sweep: service.SweepAwardExpiry}, entries[0])
	assert.Equal(t, Entry{Spec: "@every 6h", Sweep: service.SweepUnfunded}, entries[1])
}

func TestServeMux_RoutesEverySweep(t *testing.T) {
	ctx := context.Background()
	runner := new(mockRunner)
	mux := NewServeMux(NewHandler(runner))

	for _, sweep := range service.SweepNames {
		runner.On("Run", ctx, sweep).Return(&service.SweepReport{Sweep: sweep}, nil).Once()
		require.NoError(t, mux.ProcessTask(ctx, NewTask(sweep)))
	}
	runner.AssertExpectations(t)
}

func TestHandler_PropagatesError(t *testing.T) {
	ctx := context.Background()
	runner := new(mockRunner)
	runner.On("Run", ctx, service.SweepUnfunded).Return(nil, errors.New("db down"))

	err := NewHandler(runner).ProcessTask(ctx, asynq.NewTask(TaskType(service.SweepUnfunded), nil))
	assert.ErrorContains(t, err, "db down")
}

func TestNewTask_Type(t *testing.T) {
	task := NewTask(service.SweepAwardExpiry)
	assert.Equal(t, "sweep:award_expiry", task.Type())
}
