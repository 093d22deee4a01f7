package domain

import "time"

type ConversationID string
type UserID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the roles a conversation may carry.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

type ProjectType string

const (
	ProjectTypeGeneral ProjectType = "General"
)

// Defaults applied to a conversation created without explicit metadata.
const (
	DefaultTitle       = "New Engineering Project"
	DefaultProjectType = ProjectTypeGeneral
)

// UpsertOutcome tells which branch of an upsert a write took.
type UpsertOutcome int

const (
	Inserted UpsertOutcome = iota + 1
	Updated
)

func (o UpsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

type Timestamp = time.Time
