package session

// Phase is the controller's position in the session lifecycle.
type Phase int32

// Phases.
const (
	Connecting Phase = iota
	Active
	Reconnecting
	Closed
)

func (p Phase) String() string {
	switch p {
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Reconnecting:
		return "reconnecting"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
