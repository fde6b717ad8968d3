package discovery

// Status represents the overall health of the discovered daemons
type Status string

const (
	// StatusRunning indicates every daemon container is running and reachable
	StatusRunning Status = "Running"

	// StatusDegraded indicates some daemon containers are stopped or unpublished
	StatusDegraded Status = "Degraded"

	// StatusStopped indicates no daemon container is reachable
	StatusStopped Status = "Stopped"
)

// DetermineStatus analyzes the discovered daemons and determines the overall status.
func DetermineStatus(daemons []Daemon) Status {
	if len(daemons) == 0 {
		return StatusStopped
	}

	running := 0
	for _, d := range daemons {
		if d.Running() {
			running++
		}
	}

	switch {
	case running == len(daemons):
		return StatusRunning
	case running > 0:
		return StatusDegraded
	default:
		return StatusStopped
	}
}
