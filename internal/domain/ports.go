package domain

import "context"

// ConversationStore defines conversation persistence. Every operation is
// scoped by (ConversationID, UserID).
type ConversationStore interface {
	// Create upserts the conversation. The insert branch sets Starred=false and
	// CreatedAt; the update branch overwrites messages, title, project type,
	// iso mode and UpdatedAt only.
	Create(ctx context.Context, in CreateInput) (*Conversation, UpsertOutcome, error)

	// Append adds msgs to the end of the conversation, creating it with
	// defaults when absent.
	Append(ctx context.Context, id ConversationID, userID UserID, msgs []Message) (*Conversation, error)

	// Get returns ErrNotFound when the pair does not exist.
	Get(ctx context.Context, id ConversationID, userID UserID) (*Conversation, error)

	// ListForUser returns pinned conversations first, each group by UpdatedAt descending.
	ListForUser(ctx context.Context, userID UserID) ([]*Conversation, error)

	Rename(ctx context.Context, id ConversationID, userID UserID, title string) error

	// TogglePin flips Starred and returns the new value.
	TogglePin(ctx context.Context, id ConversationID, userID UserID) (bool, error)

	Delete(ctx context.Context, id ConversationID, userID UserID) error
}

// UsageStore defines usage accounting persistence.
type UsageStore interface {
	// RecordUsage atomically increments both counters, creating the record at 1.
	RecordUsage(ctx context.Context, userID UserID) (*UserUsage, error)

	// GetUsage returns ErrNotFound when the user has no record yet.
	GetUsage(ctx context.Context, userID UserID) (*UserUsage, error)
}

// AdviceReply is what the advice backend answered. Body is forwarded to the
// caller verbatim together with Status.
type AdviceReply struct {
	Status  int
	Body    []byte
	Success bool
	Text    string
	Error   string
}

// AdviceClient is the external advice-generating backend.
type AdviceClient interface {
	Ask(ctx context.Context, msgs []Message) (*AdviceReply, error)
}
