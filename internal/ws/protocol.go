package ws

import (
	"github.com/matsufriends-org/steam-upload-helper/internal/state"
)

type MessageType string

const (
	MsgSnapshot           MessageType = "snapshot"
	MsgDelta              MessageType = "delta"
	MsgOutcome            MessageType = "outcome"
	MsgMobileConfirmation MessageType = "mobile_confirmation"
	MsgError              MessageType = "error"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type SnapshotPayload struct {
	Operations []*state.Operation `json:"operations"`
	Flags      state.Flags        `json:"flags"`
}

type DeltaPayload struct {
	Updates []*state.Operation `json:"updates"`
	Removed []string           `json:"removed,omitempty"`
	Flags   state.Flags        `json:"flags"`
}

// OutcomePayload announces a terminal operation state the moment it
// lands, outside the delta throttle, so the UI can react immediately.
type OutcomePayload struct {
	OperationID string       `json:"operationId"`
	Kind        state.Kind   `json:"kind"`
	Status      state.Status `json:"status"`
	Detail      string       `json:"detail,omitempty"`
}

// MobileConfirmationPayload tells the UI to prompt the user to approve
// the login on their Steam mobile app. The login stays in flight.
type MobileConfirmationPayload struct {
	OperationID string `json:"operationId"`
	Message     string `json:"message"`
}
