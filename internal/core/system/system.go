package system

import "time"

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseEvents      Phase = iota // 0: deliver last frame's queued signals
	PhaseFixedUpdate              // 1: fixed time step scripts, zero or more steps
	PhaseUpdate                   // 2: component Update
	PhaseLateUpdate               // 3: component LateUpdate
	PhaseBroadphase               // 4: sync moved entities into the AABB tree
	PhasePersist                  // 5: periodic snapshot save
	PhaseCleanup                  // 6: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseEvents:
		return "events"
	case PhaseFixedUpdate:
		return "fixed_update"
	case PhaseUpdate:
		return "update"
	case PhaseLateUpdate:
		return "late_update"
	case PhaseBroadphase:
		return "broadphase"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every frame system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
