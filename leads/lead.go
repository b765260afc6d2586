// Package leads implements the lead-capture conversation core: the dialogue
// state machine, per-user sessions, field validation, and submission of
// completed leads to a record sink. It is transport-agnostic; the Telegram
// layer feeds it events and it replies through the Gateway port.
package leads

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Step is the ordinal position within the lead-capture dialogue.
type Step int

const (
	// StepName awaits the visitor's name.
	StepName Step = iota + 1
	// StepEmail awaits an email address.
	StepEmail
	// StepPhone awaits a phone number.
	StepPhone
	// StepQuery awaits the free-text enquiry.
	StepQuery
	// StepConfirm awaits the confirm/cancel choice.
	StepConfirm
)

// String returns a stable name used in logs.
func (s Step) String() string {
	switch s {
	case StepName:
		return "name"
	case StepEmail:
		return "email"
	case StepPhone:
		return "phone"
	case StepQuery:
		return "query"
	case StepConfirm:
		return "confirm"
	}
	return "unknown"
}

// Session is an in-progress dialogue for one Telegram user. A session exists
// in the store if and only if the user is mid-dialogue.
type Session struct {
	UserID    int64
	Option    string
	Name      string
	Email     string
	Phone     string
	Query     string
	Step      Step
	UpdatedAt time.Time
}

// Record is an immutable snapshot of a completed session handed to the sink.
type Record struct {
	ID         string
	CapturedAt time.Time
	Option     string
	Name       string
	Email      string
	Phone      string
	Query      string
}

// Snapshot freezes the session fields into a Record stamped with now.
func (s *Session) Snapshot(now time.Time) Record {
	return Record{
		ID:         uuid.NewString(),
		CapturedAt: now,
		Option:     s.Option,
		Name:       s.Name,
		Email:      s.Email,
		Phone:      s.Phone,
		Query:      s.Query,
	}
}

// RecordSink persists completed leads. Implementations live under sink/.
type RecordSink interface {
	Append(ctx context.Context, rec Record) error
}

// Choice is one button offered alongside an outbound prompt. Key and Data
// map onto the transport's callback encoding.
type Choice struct {
	Label string
	Key   string
	Data  string
}

// Gateway is the outbound messaging port the engine replies through.
// Inbound acknowledgement of button events is the transport's duty and
// happens before the engine ever sees the event.
type Gateway interface {
	SendText(ctx context.Context, userID int64, text string) error
	SendChoices(ctx context.Context, userID int64, text string, choices []Choice) error
}
