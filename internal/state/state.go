package state

import (
	"encoding/json"
	"time"
)

// Kind identifies which monitored operation an entry describes.
type Kind string

const (
	KindLogin   Kind = "login"
	KindConsole Kind = "console"
	KindUpload  Kind = "upload"
)

// Status is the lifecycle state of a monitored operation.
type Status int

const (
	Running Status = iota
	Succeeded
	Failed
	ProcessEnded
	TimedOut
	MobilePending
	Closed
)

var statusNames = map[Status]string{
	Running:       "running",
	Succeeded:     "succeeded",
	Failed:        "failed",
	ProcessEnded:  "process_ended",
	TimedOut:      "timed_out",
	MobilePending: "mobile_pending",
	Closed:        "closed",
}

var statusFromName = map[string]Status{
	"running":        Running,
	"succeeded":      Succeeded,
	"failed":         Failed,
	"process_ended":  ProcessEnded,
	"timed_out":      TimedOut,
	"mobile_pending": MobilePending,
	"closed":         Closed,
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if v, ok := statusFromName[name]; ok {
		*s = v
	}
	return nil
}

// Terminal reports whether the status ends the operation. MobilePending is
// a non-terminal side state: the login is still in flight.
func (s Status) Terminal() bool {
	return s != Running && s != MobilePending
}

// Operation is one monitored activity (a login attempt, the console
// session, an upload) as surfaced to the UI layer.
type Operation struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"kind"`
	Status      Status     `json:"status"`
	Detail      string     `json:"detail,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// IsTerminal reports whether the operation has reached a terminal status.
func (o *Operation) IsTerminal() bool {
	return o.Status.Terminal()
}

// Flags is the caller-visible summary state the monitors maintain. Each
// flag is written by exactly one monitor and read by the UI layer.
type Flags struct {
	LoggedIn    bool   `json:"loggedIn"`
	ConsoleOpen bool   `json:"consoleOpen"`
	Username    string `json:"username,omitempty"`
}
