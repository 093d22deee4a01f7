package domain

import (
	"slices"
	"strings"
)

// Message is one turn of a conversation. It has no identity of its own.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// CreatedAt is stamped by Append; messages written through Create keep whatever the caller sent.
	CreatedAt *Timestamp `json:"createdAt,omitempty"`
}

// Conversation is a titled thread owned by a single user.
// (ID, UserID) is the identity key in every store.
type Conversation struct {
	ID          ConversationID `json:"conversationId"`
	UserID      UserID         `json:"userId"`
	Title       string         `json:"title"`
	ProjectType ProjectType    `json:"projectType"`
	IsoMode     bool           `json:"isoMode"`
	Starred     bool           `json:"starred"`
	Messages    []Message      `json:"messages"`
	CreatedAt   Timestamp      `json:"createdAt"`
	UpdatedAt   Timestamp      `json:"updatedAt"`
}

// UserUsage holds the per-user counters that gate access to the advice backend.
type UserUsage struct {
	UserID        UserID    `json:"userId"`
	MessageCount  int64     `json:"messageCount"`
	TotalRequests int64     `json:"totalRequests"`
	CreatedAt     Timestamp `json:"createdAt"`
	UpdatedAt     Timestamp `json:"updatedAt"`
}

// CreateInput carries the fields written by ConversationStore.Create.
// Empty Title and ProjectType fall back to the defaults.
type CreateInput struct {
	ID          ConversationID
	UserID      UserID
	Messages    []Message
	Title       string
	ProjectType ProjectType
	IsoMode     bool
}

// Normalized returns a copy with defaults applied and a non-nil message slice.
func (in CreateInput) Normalized() CreateInput {
	if strings.TrimSpace(in.Title) == "" {
		in.Title = DefaultTitle
	}
	if strings.TrimSpace(string(in.ProjectType)) == "" {
		in.ProjectType = DefaultProjectType
	}
	if in.Messages == nil {
		in.Messages = []Message{}
	} else {
		in.Messages = slices.Clone(in.Messages)
	}
	return in
}

// StampMessages returns a copy of msgs with every CreatedAt set to now.
// Timestamps sent by the caller are replaced.
func StampMessages(msgs []Message, now Timestamp) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		t := now
		m.CreatedAt = &t
		out[i] = m
	}
	return out
}

// SortForListing orders conversations pinned first, then most recently
// updated first inside each group. The sort is stable.
func SortForListing(convs []*Conversation) {
	slices.SortStableFunc(convs, func(a, b *Conversation) int {
		if a.Starred != b.Starred {
			if a.Starred {
				return -1
			}
			return 1
		}
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}
