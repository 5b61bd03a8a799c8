package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase { return r.phase }

func (r recorder) Update(time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"cleanup", PhaseCleanup, &log})
	r.Register(recorder{"update-a", PhaseUpdate, &log})
	r.Register(recorder{"events", PhaseEvents, &log})
	r.Register(recorder{"update-b", PhaseUpdate, &log})

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"events", "update-a", "update-b", "cleanup"}, log)

	log = log[:0]
	r.TickPhase(PhaseUpdate, time.Millisecond)
	assert.Equal(t, []string{"update-a", "update-b"}, log)
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, "late_update", PhaseLateUpdate.String())
}
