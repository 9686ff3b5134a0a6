package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	fail        bool
	wantPrimary bool
	wantOpen    bool
	wantChange  StateChange
}

func replay(t *testing.T, b *Breaker, steps []outcome) {
	t.Helper()
	for i, step := range steps {
		var (
			primary bool
			change  StateChange
		)
		if step.fail {
			var fallback bool
			fallback, change = b.RecordFailure()
			primary = !fallback
		} else {
			primary, change = b.RecordSuccess()
		}
		require.Equal(t, step.wantPrimary, primary, "step %d primary", i)
		require.Equal(t, step.wantChange, change, "step %d change", i)
		require.Equal(t, step.wantOpen, b.IsOpen(), "step %d open", i)
	}
}

func TestNewBreakerStartsClosed(t *testing.T) {
	b := New("validation")
	assert.Equal(t, "validation", b.Name())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		steps []outcome
	}{
		{
			name: "opens on the third consecutive failure",
			opts: []Option{WithFailureThreshold(3)},
			steps: []outcome{
				{fail: true, wantPrimary: true},
				{fail: true, wantPrimary: true},
				{fail: true, wantOpen: true, wantChange: StateChange{Opened: true}},
				{fail: true, wantOpen: true},
			},
		},
		{
			name: "a success in between restarts the failure count",
			opts: []Option{WithFailureThreshold(2)},
			steps: []outcome{
				{fail: true, wantPrimary: true},
				{wantPrimary: true},
				{fail: true, wantPrimary: true},
				{fail: true, wantOpen: true, wantChange: StateChange{Opened: true}},
			},
		},
		{
			name: "closes after enough trial calls succeed",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []outcome{
				{fail: true, wantOpen: true, wantChange: StateChange{Opened: true}},
				{wantOpen: true},
				{wantPrimary: true, wantChange: StateChange{Closed: true}},
			},
		},
		{
			name: "a failed trial call restarts the success count",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []outcome{
				{fail: true, wantOpen: true, wantChange: StateChange{Opened: true}},
				{wantOpen: true},
				{fail: true, wantOpen: true},
				{wantOpen: true},
				{wantPrimary: true, wantChange: StateChange{Closed: true}},
			},
		},
		{
			name: "non-positive thresholds keep the defaults",
			opts: []Option{WithFailureThreshold(0), WithSuccessThreshold(-1)},
			steps: []outcome{
				{fail: true, wantPrimary: true},
				{fail: true, wantPrimary: true},
				{fail: true, wantPrimary: true},
				{fail: true, wantPrimary: true},
				{fail: true, wantOpen: true, wantChange: StateChange{Opened: true}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replay(t, New("validation", tt.opts...), tt.steps)
		})
	}
}
