package domain

import "time"

// Status is an operator-facing signal. It never influences command resolution.
type Status string

const (
	StatusLoadingCredential Status = "loading_credential"
	StatusListening         Status = "listening"
	StatusSuspended         Status = "suspended"
	StatusWoke              Status = "woke"
	StatusKeepAlive         Status = "keep_alive"
	StatusDiscarded         Status = "discarded"
	StatusProcessingRemote  Status = "processing_remote"
	StatusTransportError    Status = "error_transport"
	StatusNoCredential      Status = "error_no_credential"
	StatusRecognizedLocal   Status = "recognized_local"
	StatusRecognizedRemote  Status = "recognized_remote"
	StatusUnrecognized      Status = "unrecognized"
	StatusSourceError       Status = "error_source"
	StatusUnsupported       Status = "unsupported"
)

// Mode is the text of the status pill shown to the operator.
type Mode string

const (
	ModeActive       Mode = "Activo"
	ModeSuspended    Mode = "Suspendido"
	ModeError        Mode = "Error"
	ModeNoCredential Mode = "Sin API Key"
	ModeUnsupported  Mode = "No compatible"
)

// StatusEvent is a status signal with the message shown to the operator.
// Mode is empty when the signal does not change the pill.
// Transcript carries the text just heard, when there is one.
type StatusEvent struct {
	Status     Status        `json:"status"`
	Mode       Mode          `json:"mode,omitempty"`
	Message    string        `json:"message"`
	Transcript string        `json:"transcript,omitempty"`
	State      ActivityState `json:"state,omitempty"`
	At         time.Time     `json:"at"`
}

// NoCommand is what the panel shows when no command is displayed.
const NoCommand = "—"

// Panel is the operator view: mode pill, last transcript, last command, substatus.
type Panel struct {
	Mode       Mode          `json:"mode"`
	Transcript string        `json:"transcript"`
	Command    string        `json:"command"`
	Substatus  string        `json:"substatus"`
	State      ActivityState `json:"state,omitempty"`
	Language   string        `json:"language,omitempty"`
}
