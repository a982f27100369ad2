package model

type ProjectStatus string

const (
	StatusCreated     ProjectStatus = "created"
	StatusInitialized ProjectStatus = "initialized"
	StatusCompiled    ProjectStatus = "compiled"
	StatusDeployed    ProjectStatus = "deployed"
)

func (s ProjectStatus) rank() int {
	switch s {
	case StatusInitialized:
		return 1
	case StatusCompiled:
		return 2
	case StatusDeployed:
		return 3
	}
	return 0
}

func (s ProjectStatus) IsValid() bool {
	switch s {
	case StatusCreated, StatusInitialized, StatusCompiled, StatusDeployed:
		return true
	}
	return false
}

// AtLeast reports whether s is the same stage as other or a later one.
func (s ProjectStatus) AtLeast(other ProjectStatus) bool {
	return s.rank() >= other.rank()
}

// NextStatus returns the status a project moves to after a pipeline step.
//
// Status tracks the current pipeline position. Init never moves a project backwards,
// a failed compile drops it to initialized, a failed deploy leaves it where it was.
// Only a successful deploy yields deployed.
func NextStatus(current ProjectStatus, step HistoryType, success bool) ProjectStatus {
	switch step {
	case HistoryInit:
		if success && !current.AtLeast(StatusInitialized) {
			return StatusInitialized
		}
	case HistoryCompile:
		if success {
			return StatusCompiled
		}
		if current.AtLeast(StatusInitialized) {
			return StatusInitialized
		}
	case HistoryDeploy:
		if success {
			return StatusDeployed
		}
	}
	return current
}

// SupportedStatus is the furthest status the history of a project backs with a
// successful entry.
func SupportedStatus(history []*HistoryEntry) ProjectStatus {
	supported := StatusCreated
	for _, entry := range history {
		if entry.Status != HistorySuccess {
			continue
		}

		var reached ProjectStatus
		switch entry.Type {
		case HistoryInit:
			reached = StatusInitialized
		case HistoryCompile:
			reached = StatusCompiled
		case HistoryDeploy:
			reached = StatusDeployed
		}

		if reached.rank() > supported.rank() {
			supported = reached
		}
	}
	return supported
}
