package canbridge

import "fmt"

type EventHandler struct {
	Type    EventType
	Handler func(Event)
}

type EventType int

func (et EventType) String() string {
	switch et {
	case EventTypeError:
		return "ERROR"
	case EventTypeWarning:
		return "WARN"
	case EventTypeInfo:
		return "INFO"
	case EventTypeDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

const (
	EventTypeError EventType = iota
	EventTypeWarning
	EventTypeInfo
	EventTypeDebug
)

// Event is a notification about the line source, such as a serial port
// connecting or dropping.
type Event struct {
	Type      EventType
	Details   string
	Port      string
	Connected bool
}

func (e Event) String() string {
	return fmt.Sprintf("[%s] %s", e.Type.String(), e.Details)
}

func connectionEvent(connected bool, port string) Event {
	if connected {
		return Event{Type: EventTypeInfo, Details: "connected to " + port, Port: port, Connected: true}
	}
	return Event{Type: EventTypeWarning, Details: "disconnected from " + port, Port: port}
}
