package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/ask-michael/internal/domain"
)

// Store implements domain.ConversationStore and domain.UsageStore on Firestore.
// Conversations live under users/{userId}/conversations/{conversationId}, so
// the owner is part of the document path.
type Store struct {
	client *firestore.Client
	now    func() time.Time
}

// NewStore creates a Firestore store.
// Uses the project passed (ASKMICHAEL_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: projectID is required for Firestore store", domain.ErrConnection)
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: creating firestore client: %v", domain.ErrConnection, err)
	}

	return &Store{client: client, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) conversationsCol(userID domain.UserID) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(string(userID)).Collection("conversations")
}

func (s *Store) conversationDoc(id domain.ConversationID, userID domain.UserID) *firestore.DocumentRef {
	return s.conversationsCol(userID).Doc(string(id))
}

func (s *Store) usageDoc(userID domain.UserID) *firestore.DocumentRef {
	return s.client.Collection("user_usage").Doc(string(userID))
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type messageDoc struct {
	Role      string     `firestore:"role"`
	Content   string     `firestore:"content"`
	CreatedAt *time.Time `firestore:"createdAt,omitempty"`
}

type conversationDoc struct {
	ConversationID string       `firestore:"conversationId"`
	UserID         string       `firestore:"userId"`
	Title          string       `firestore:"title"`
	ProjectType    string       `firestore:"projectType"`
	IsoMode        bool         `firestore:"isoMode"`
	Starred        bool         `firestore:"starred"`
	Messages       []messageDoc `firestore:"messages"`
	CreatedAt      time.Time    `firestore:"createdAt"`
	UpdatedAt      time.Time    `firestore:"updatedAt"`
}

type usageDoc struct {
	UserID        string    `firestore:"userId"`
	MessageCount  int64     `firestore:"messageCount"`
	TotalRequests int64     `firestore:"totalRequests"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func toMessageDocs(msgs []domain.Message) []messageDoc {
	out := make([]messageDoc, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageDoc{Role: string(m.Role), Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return out
}

func (d *conversationDoc) toDomain() *domain.Conversation {
	msgs := make([]domain.Message, 0, len(d.Messages))
	for _, m := range d.Messages {
		msgs = append(msgs, domain.Message{Role: domain.Role(m.Role), Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return &domain.Conversation{
		ID:          domain.ConversationID(d.ConversationID),
		UserID:      domain.UserID(d.UserID),
		Title:       d.Title,
		ProjectType: domain.ProjectType(d.ProjectType),
		IsoMode:     d.IsoMode,
		Starred:     d.Starred,
		Messages:    msgs,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (d *usageDoc) toDomain() *domain.UserUsage {
	return &domain.UserUsage{
		UserID:        domain.UserID(d.UserID),
		MessageCount:  d.MessageCount,
		TotalRequests: d.TotalRequests,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// ─────────────────────────────────────────
// ConversationStore implementation
// ─────────────────────────────────────────

func (s *Store) Create(ctx context.Context, in domain.CreateInput) (*domain.Conversation, domain.UpsertOutcome, error) {
	in = in.Normalized()
	ref := s.conversationDoc(in.ID, in.UserID)

	var (
		result  *domain.Conversation
		outcome domain.UpsertOutcome
	)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := s.now()

		snap, err := tx.Get(ref)
		if err != nil && !isNotFound(err) {
			return err
		}

		if err != nil {
			doc := conversationDoc{
				ConversationID: string(in.ID),
				UserID:         string(in.UserID),
				Title:          in.Title,
				ProjectType:    string(in.ProjectType),
				IsoMode:        in.IsoMode,
				Starred:        false,
				Messages:       toMessageDocs(in.Messages),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			result, outcome = doc.toDomain(), domain.Inserted
			return tx.Create(ref, doc)
		}

		var doc conversationDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode conversationDoc: %w", err)
		}
		doc.Title = in.Title
		doc.ProjectType = string(in.ProjectType)
		doc.IsoMode = in.IsoMode
		doc.Messages = toMessageDocs(in.Messages)
		doc.UpdatedAt = now

		result, outcome = doc.toDomain(), domain.Updated
		return tx.Update(ref, []firestore.Update{
			{Path: "messages", Value: doc.Messages},
			{Path: "title", Value: doc.Title},
			{Path: "projectType", Value: doc.ProjectType},
			{Path: "isoMode", Value: doc.IsoMode},
			{Path: "updatedAt", Value: now},
		})
	})
	if err != nil {
		return nil, 0, domain.StorageFailure("firestore Create", err)
	}
	return result, outcome, nil
}

// Append rewrites the messages array inside a transaction. ArrayUnion is not
// usable here: it drops elements equal to ones already present.
func (s *Store) Append(ctx context.Context, id domain.ConversationID, userID domain.UserID, msgs []domain.Message) (*domain.Conversation, error) {
	ref := s.conversationDoc(id, userID)

	var result *domain.Conversation
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := s.now()
		appended := toMessageDocs(domain.StampMessages(msgs, now))

		snap, err := tx.Get(ref)
		if err != nil && !isNotFound(err) {
			return err
		}

		if err != nil {
			doc := conversationDoc{
				ConversationID: string(id),
				UserID:         string(userID),
				Title:          domain.DefaultTitle,
				ProjectType:    string(domain.DefaultProjectType),
				Messages:       appended,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			result = doc.toDomain()
			return tx.Create(ref, doc)
		}

		var doc conversationDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode conversationDoc: %w", err)
		}
		doc.Messages = append(doc.Messages, appended...)
		doc.UpdatedAt = now

		result = doc.toDomain()
		return tx.Update(ref, []firestore.Update{
			{Path: "messages", Value: doc.Messages},
			{Path: "updatedAt", Value: now},
		})
	})
	if err != nil {
		return nil, domain.StorageFailure("firestore Append", err)
	}
	return result, nil
}

func (s *Store) Get(ctx context.Context, id domain.ConversationID, userID domain.UserID) (*domain.Conversation, error) {
	snap, err := s.conversationDoc(id, userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.StorageFailure("firestore Get", err)
	}

	var doc conversationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, domain.StorageFailure("firestore Get decode", err)
	}
	return doc.toDomain(), nil
}

// ListForUser needs the composite index (starred DESC, updatedAt DESC) on the
// conversations collection group.
func (s *Store) ListForUser(ctx context.Context, userID domain.UserID) ([]*domain.Conversation, error) {
	q := s.conversationsCol(userID).
		OrderBy("starred", firestore.Desc).
		OrderBy("updatedAt", firestore.Desc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := []*domain.Conversation{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, domain.StorageFailure("firestore ListForUser", err)
		}

		var doc conversationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, domain.StorageFailure("firestore ListForUser decode", err)
		}
		out = append(out, doc.toDomain())
	}
	return out, nil
}

func (s *Store) Rename(ctx context.Context, id domain.ConversationID, userID domain.UserID, title string) error {
	_, err := s.conversationDoc(id, userID).Update(ctx, []firestore.Update{
		{Path: "title", Value: title},
		{Path: "updatedAt", Value: s.now()},
	})
	if err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return domain.StorageFailure("firestore Rename", err)
	}
	return nil
}

func (s *Store) TogglePin(ctx context.Context, id domain.ConversationID, userID domain.UserID) (bool, error) {
	ref := s.conversationDoc(id, userID)

	var starred bool
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var doc conversationDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode conversationDoc: %w", err)
		}
		starred = !doc.Starred
		return tx.Update(ref, []firestore.Update{{Path: "starred", Value: starred}})
	})
	if err != nil {
		if isNotFound(err) {
			return false, domain.ErrNotFound
		}
		return false, domain.StorageFailure("firestore TogglePin", err)
	}
	return starred, nil
}

func (s *Store) Delete(ctx context.Context, id domain.ConversationID, userID domain.UserID) error {
	_, err := s.conversationDoc(id, userID).Delete(ctx, firestore.Exists)
	if err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return domain.StorageFailure("firestore Delete", err)
	}
	return nil
}

// ─────────────────────────────────────────
// UsageStore implementation
// ─────────────────────────────────────────

func (s *Store) RecordUsage(ctx context.Context, userID domain.UserID) (*domain.UserUsage, error) {
	ref := s.usageDoc(userID)

	var result *domain.UserUsage
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := s.now()

		snap, err := tx.Get(ref)
		if err != nil && !isNotFound(err) {
			return err
		}

		if err != nil {
			doc := usageDoc{
				UserID:        string(userID),
				MessageCount:  1,
				TotalRequests: 1,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			result = doc.toDomain()
			return tx.Create(ref, doc)
		}

		var doc usageDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode usageDoc: %w", err)
		}
		doc.MessageCount++
		doc.TotalRequests++
		doc.UpdatedAt = now

		result = doc.toDomain()
		return tx.Update(ref, []firestore.Update{
			{Path: "messageCount", Value: firestore.Increment(1)},
			{Path: "totalRequests", Value: firestore.Increment(1)},
			{Path: "updatedAt", Value: now},
		})
	})
	if err != nil {
		return nil, domain.StorageFailure("firestore RecordUsage", err)
	}
	return result, nil
}

func (s *Store) GetUsage(ctx context.Context, userID domain.UserID) (*domain.UserUsage, error) {
	snap, err := s.usageDoc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.StorageFailure("firestore GetUsage", err)
	}

	var doc usageDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, domain.StorageFailure("firestore GetUsage decode", err)
	}
	return doc.toDomain(), nil
}
