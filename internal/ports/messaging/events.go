package messaging

import (
	"time"

	"attendance.service/internal/core/model"
)

// ForwardEvent is the JSON payload queued for the legacy clocking forwarder.
// Only Clock In / Clock Out rows are ever published.
type ForwardEvent struct {
	StaffID    string           `json:"staffId"`
	Timestamp  time.Time        `json:"timestamp"`
	ClockEvent model.ClockEvent `json:"clockEvent"`
	TerminalID string           `json:"terminalId"`
	Controller string           `json:"controller"`
}

// NewForwardEvent builds the forward payload from a classified event. The
// legacy system keys clockings by terminal; scans without a unit number fall
// back to a default terminal id, matching what the legacy importer expects.
func NewForwardEvent(ev model.ClassifiedEvent) ForwardEvent {
	terminal := ev.UnitNo
	if terminal == "" {
		terminal = "DEFAULT"
	}
	return ForwardEvent{
		StaffID:    ev.StaffID,
		Timestamp:  ev.Timestamp,
		ClockEvent: ev.Event,
		TerminalID: terminal,
		Controller: ev.ControllerID,
	}
}
