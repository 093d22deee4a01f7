package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/PabloGalante/ask-michael/internal/domain"
)

type conversationKey struct {
	id     domain.ConversationID
	userID domain.UserID
}

// ConversationStore is an in-memory domain.ConversationStore.
// It is NOT persistent and is only suitable for local mode and tests.
type ConversationStore struct {
	mu    sync.RWMutex
	clock clock
	convs map[conversationKey]*domain.Conversation
}

func NewConversationStore(opts ...Option) *ConversationStore {
	return &ConversationStore{
		clock: newClock(opts),
		convs: make(map[conversationKey]*domain.Conversation),
	}
}

func (s *ConversationStore) Create(_ context.Context, in domain.CreateInput) (*domain.Conversation, domain.UpsertOutcome, error) {
	in = in.Normalized()
	key := conversationKey{in.ID, in.UserID}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.now()
	if conv, ok := s.convs[key]; ok {
		conv.Messages = in.Messages
		conv.Title = in.Title
		conv.ProjectType = in.ProjectType
		conv.IsoMode = in.IsoMode
		conv.UpdatedAt = now
		return clone(conv), domain.Updated, nil
	}

	conv := &domain.Conversation{
		ID:          in.ID,
		UserID:      in.UserID,
		Title:       in.Title,
		ProjectType: in.ProjectType,
		IsoMode:     in.IsoMode,
		Starred:     false,
		Messages:    in.Messages,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.convs[key] = conv
	return clone(conv), domain.Inserted, nil
}

func (s *ConversationStore) Append(_ context.Context, id domain.ConversationID, userID domain.UserID, msgs []domain.Message) (*domain.Conversation, error) {
	key := conversationKey{id, userID}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.now()
	stamped := domain.StampMessages(msgs, now)

	conv, ok := s.convs[key]
	if !ok {
		conv = &domain.Conversation{
			ID:          id,
			UserID:      userID,
			Title:       domain.DefaultTitle,
			ProjectType: domain.DefaultProjectType,
			Messages:    []domain.Message{},
			CreatedAt:   now,
		}
		s.convs[key] = conv
	}

	conv.Messages = append(conv.Messages, stamped...)
	conv.UpdatedAt = now
	return clone(conv), nil
}

func (s *ConversationStore) Get(_ context.Context, id domain.ConversationID, userID domain.UserID) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[conversationKey{id, userID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(conv), nil
}

func (s *ConversationStore) ListForUser(_ context.Context, userID domain.UserID) ([]*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Conversation{}
	for key, conv := range s.convs {
		if key.userID == userID {
			out = append(out, clone(conv))
		}
	}

	domain.SortForListing(out)
	return out, nil
}

func (s *ConversationStore) Rename(_ context.Context, id domain.ConversationID, userID domain.UserID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[conversationKey{id, userID}]
	if !ok {
		return domain.ErrNotFound
	}
	conv.Title = title
	conv.UpdatedAt = s.clock.now()
	return nil
}

func (s *ConversationStore) TogglePin(_ context.Context, id domain.ConversationID, userID domain.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[conversationKey{id, userID}]
	if !ok {
		return false, domain.ErrNotFound
	}
	conv.Starred = !conv.Starred
	return conv.Starred, nil
}

func (s *ConversationStore) Delete(_ context.Context, id domain.ConversationID, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := conversationKey{id, userID}
	if _, ok := s.convs[key]; !ok {
		return domain.ErrNotFound
	}
	delete(s.convs, key)
	return nil
}

// clone returns a copy that callers can mutate without touching the store.
func clone(c *domain.Conversation) *domain.Conversation {
	out := *c
	out.Messages = slices.Clone(c.Messages)
	if out.Messages == nil {
		out.Messages = []domain.Message{}
	}
	return &out
}
