package setup

// Backend selects how the engine is reached.
type Backend int

const (
	BackendNative      Backend = iota // host socket
	BackendVirtualized                // Docker Machine VM
)

func (b Backend) String() string {
	switch b {
	case BackendNative:
		return "native"
	case BackendVirtualized:
		return "virtualized"
	default:
		return "unknown"
	}
}

// ParseBackend converts a name produced by String back to a Backend.
func ParseBackend(s string) (Backend, bool) {
	switch s {
	case "native":
		return BackendNative, true
	case "virtualized", "virtualbox", "vm":
		return BackendVirtualized, true
	default:
		return 0, false
	}
}

// State is the orchestrator's position in the setup state machine.
type State int

const (
	StateProbing          State = iota // choosing a strategy
	StateNativeAttempt                 // binding to the host socket
	StateVirtualAttempt                // bringing up the VM
	StateAwaitingOperator              // suspended on the gate
	StateReady                         // engine bound
)

func (s State) String() string {
	switch s {
	case StateProbing:
		return "probing"
	case StateNativeAttempt:
		return "native-attempt"
	case StateVirtualAttempt:
		return "virtual-attempt"
	case StateAwaitingOperator:
		return "awaiting-operator"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Attempt is what the virtualized strategy has learned so far.
type Attempt struct {
	VirtualBoxVersion string
	MachineVersion    string
	IP                string
	Err               error
}
