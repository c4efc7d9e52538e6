package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
)

func TestRegister_InitializesTransitionSeries(t *testing.T) {
	Register()
	Register()

	events := len(valueobject.Events())
	assert.GreaterOrEqual(t, testutil.CollectAndCount(Transitions), events)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(RejectedTransitions), events)
	assert.Zero(t, testutil.ToFloat64(Transitions.WithLabelValues(string(valueobject.EventAward))))
}
