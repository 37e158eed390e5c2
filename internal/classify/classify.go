// Package classify turns raw SteamCMD console output into a small set of
// status symbols. Rules are evaluated top to bottom over the cumulative text
// a monitor has observed, so classification is idempotent across polls and
// a later rule can never override an earlier match.
package classify

import "strings"

// Status is the result of classifying a text buffer.
type Status int

const (
	// Unknown means no rule matched; the caller keeps polling.
	Unknown Status = iota
	// Success means the login completed.
	Success
	// Failed means the login was rejected.
	Failed
	// MobileConfirmationPending means SteamCMD is waiting for the user to
	// approve the login in the Steam mobile app. Not terminal.
	MobileConfirmationPending
	// Completed means a build transfer finished.
	Completed
	// TransferFailed means a build transfer reported an error.
	TransferFailed
)

var statusNames = map[Status]string{
	Unknown:                   "unknown",
	Success:                   "success",
	Failed:                    "failed",
	MobileConfirmationPending: "mobile_confirmation_pending",
	Completed:                 "completed",
	TransferFailed:            "transfer_failed",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// Terminal reports whether the status ends a monitoring session.
func (s Status) Terminal() bool {
	switch s {
	case Success, Failed, Completed, TransferFailed:
		return true
	}
	return false
}

// Rule matches a text buffer against phrase sets. A rule matches when at
// least one AnyOf phrase is present (or AnyOf is empty), every AllOf phrase
// is present, and no NoneOf phrase is present.
type Rule struct {
	Status Status
	AnyOf  []string
	AllOf  []string
	NoneOf []string
}

func (r Rule) matches(text string) bool {
	if len(r.AnyOf) > 0 {
		found := false
		for _, p := range r.AnyOf {
			if strings.Contains(text, p) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, p := range r.AllOf {
		if !strings.Contains(text, p) {
			return false
		}
	}
	for _, p := range r.NoneOf {
		if strings.Contains(text, p) {
			return false
		}
	}
	return true
}

// Classifier evaluates an ordered rule list, first match wins.
type Classifier struct {
	rules []Rule
}

// New returns a classifier over the given rules. Rule order is significant.
func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the status of the first matching rule, or Unknown.
func (c *Classifier) Classify(text string) Status {
	if text == "" {
		return Unknown
	}
	for _, r := range c.rules {
		if r.matches(text) {
			return r.Status
		}
	}
	return Unknown
}

// Phrases SteamCMD prints on a completed login. Shared between the success
// rule and the mobile-confirmation exclusion so that a buffered read
// containing both the authenticator prompt and the completed login is
// reported as Success, never as still pending.
var loginSuccessMarkers = []string{
	"Waiting for user info...OK",
	"Logged in OK",
}

// Login returns the classifier for the login phase.
//
// Success rules come first so a batched read that also contains earlier
// "waiting" output is not misclassified. Failed outranks the mobile
// authenticator prompt: failure is terminal and safer to surface
// immediately when both appear in one read.
func Login() *Classifier {
	return New([]Rule{
		{Status: Success, AnyOf: loginSuccessMarkers},
		{Status: Success, AllOf: []string{"Logging in user", "OK", "Steam>"}},
		{Status: Failed, AnyOf: []string{
			"FAILED login",
			"Invalid Password",
			"Rate Limit Exceeded",
			"Two-factor code mismatch",
			"ERROR (Two-factor code mismatch)",
		}},
		{Status: MobileConfirmationPending, AnyOf: []string{"Waiting for confirmation"}},
		{
			Status: MobileConfirmationPending,
			AnyOf:  []string{"This account is protected by a Steam Guard mobile authenticator"},
			NoneOf: loginSuccessMarkers,
		},
	})
}

// Transfer returns the classifier for a build upload/download, the same
// shape as the login classifier with a different vocabulary.
func Transfer() *Classifier {
	return New([]Rule{
		{Status: Completed, AnyOf: []string{
			"Successfully finished AppID",
			"successfully finished appbuild",
			"App build successful",
		}},
		{Status: TransferFailed, AnyOf: []string{
			"ERROR! Failed to commit build",
			"ERROR! Failed to upload",
			"ERROR! Depot",
			"Fatal assert failed",
			"ERROR! Failed to get depot manifest",
		}},
	})
}
