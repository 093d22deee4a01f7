package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PabloGalante/ask-michael/internal/domain"
)

const (
	conversationsCollection = "conversations"
	usageCollection         = "user_usage"
)

// Store implements domain.ConversationStore and domain.UsageStore on MongoDB.
// Every write is a single-document atomic update; nothing here uses transactions.
type Store struct {
	conversations *mongo.Collection
	usage         *mongo.Collection
	now           func() time.Time
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		conversations: db.Collection(conversationsCollection),
		usage:         db.Collection(usageCollection),
		now:           time.Now,
	}
}

// EnsureIndexes creates the identity and listing indexes. Idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.conversations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "conversationId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "starred", Value: -1}, {Key: "updatedAt", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create conversations indexes: %w", err)
	}

	_, err = s.usage.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create user_usage index: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// Documents
// ─────────────────────────────────────────

type messageDoc struct {
	Role      string     `bson:"role"`
	Content   string     `bson:"content"`
	CreatedAt *time.Time `bson:"createdAt,omitempty"`
}

type conversationDoc struct {
	ConversationID string       `bson:"conversationId"`
	UserID         string       `bson:"userId"`
	Title          string       `bson:"title"`
	ProjectType    string       `bson:"projectType"`
	IsoMode        bool         `bson:"isoMode"`
	Starred        bool         `bson:"starred"`
	Messages       []messageDoc `bson:"messages"`
	CreatedAt      time.Time    `bson:"createdAt"`
	UpdatedAt      time.Time    `bson:"updatedAt"`
}

type usageDoc struct {
	UserID        string    `bson:"userId"`
	MessageCount  int64     `bson:"messageCount"`
	TotalRequests int64     `bson:"totalRequests"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
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

func conversationFilter(id domain.ConversationID, userID domain.UserID) bson.D {
	return bson.D{{Key: "conversationId", Value: string(id)}, {Key: "userId", Value: string(userID)}}
}

// ─────────────────────────────────────────
// ConversationStore implementation
// ─────────────────────────────────────────

// Create runs one findOneAndUpdate returning the pre-image: no pre-image means
// the insert branch ran. The returned conversation is assembled from the
// written fields plus the pre-image's starred and createdAt.
func (s *Store) Create(ctx context.Context, in domain.CreateInput) (*domain.Conversation, domain.UpsertOutcome, error) {
	in = in.Normalized()
	now := s.now()

	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "messages", Value: toMessageDocs(in.Messages)},
			{Key: "title", Value: in.Title},
			{Key: "projectType", Value: string(in.ProjectType)},
			{Key: "isoMode", Value: in.IsoMode},
			{Key: "updatedAt", Value: now},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "starred", Value: false},
			{Key: "createdAt", Value: now},
		}},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before).
		SetProjection(bson.D{{Key: "starred", Value: 1}, {Key: "createdAt", Value: 1}})

	conv := &domain.Conversation{
		ID:          in.ID,
		UserID:      in.UserID,
		Title:       in.Title,
		ProjectType: in.ProjectType,
		IsoMode:     in.IsoMode,
		Messages:    in.Messages,
		UpdatedAt:   now,
	}

	var before conversationDoc
	err := s.conversations.FindOneAndUpdate(ctx, conversationFilter(in.ID, in.UserID), update, opts).Decode(&before)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		conv.Starred = false
		conv.CreatedAt = now
		return conv, domain.Inserted, nil
	case err != nil:
		return nil, 0, domain.StorageFailure("mongo Create", err)
	}

	conv.Starred = before.Starred
	conv.CreatedAt = before.CreatedAt
	return conv, domain.Updated, nil
}

func (s *Store) Append(ctx context.Context, id domain.ConversationID, userID domain.UserID, msgs []domain.Message) (*domain.Conversation, error) {
	now := s.now()

	update := bson.D{
		{Key: "$push", Value: bson.D{
			{Key: "messages", Value: bson.D{{Key: "$each", Value: toMessageDocs(domain.StampMessages(msgs, now))}}},
		}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now}}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "title", Value: domain.DefaultTitle},
			{Key: "projectType", Value: string(domain.DefaultProjectType)},
			{Key: "isoMode", Value: false},
			{Key: "starred", Value: false},
			{Key: "createdAt", Value: now},
		}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc conversationDoc
	if err := s.conversations.FindOneAndUpdate(ctx, conversationFilter(id, userID), update, opts).Decode(&doc); err != nil {
		return nil, domain.StorageFailure("mongo Append", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) Get(ctx context.Context, id domain.ConversationID, userID domain.UserID) (*domain.Conversation, error) {
	var doc conversationDoc
	err := s.conversations.FindOne(ctx, conversationFilter(id, userID)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.StorageFailure("mongo Get", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) ListForUser(ctx context.Context, userID domain.UserID) ([]*domain.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "starred", Value: -1}, {Key: "updatedAt", Value: -1}})

	cursor, err := s.conversations.Find(ctx, bson.D{{Key: "userId", Value: string(userID)}}, opts)
	if err != nil {
		return nil, domain.StorageFailure("mongo ListForUser", err)
	}
	defer cursor.Close(ctx)

	var docs []conversationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.StorageFailure("mongo ListForUser decode", err)
	}

	out := make([]*domain.Conversation, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (s *Store) Rename(ctx context.Context, id domain.ConversationID, userID domain.UserID, title string) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: title},
		{Key: "updatedAt", Value: s.now()},
	}}}

	res, err := s.conversations.UpdateOne(ctx, conversationFilter(id, userID), update)
	if err != nil {
		return domain.StorageFailure("mongo Rename", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TogglePin flips starred server-side with a pipeline update, so concurrent
// toggles serialize on the document instead of racing a read.
func (s *Store) TogglePin(ctx context.Context, id domain.ConversationID, userID domain.UserID) (bool, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "starred", Value: bson.D{{Key: "$not", Value: bson.A{"$starred"}}}},
		}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "starred", Value: 1}})

	var doc conversationDoc
	err := s.conversations.FindOneAndUpdate(ctx, conversationFilter(id, userID), pipeline, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, domain.StorageFailure("mongo TogglePin", err)
	}
	return doc.Starred, nil
}

func (s *Store) Delete(ctx context.Context, id domain.ConversationID, userID domain.UserID) error {
	res, err := s.conversations.DeleteOne(ctx, conversationFilter(id, userID))
	if err != nil {
		return domain.StorageFailure("mongo Delete", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ─────────────────────────────────────────
// UsageStore implementation
// ─────────────────────────────────────────

func (s *Store) RecordUsage(ctx context.Context, userID domain.UserID) (*domain.UserUsage, error) {
	now := s.now()

	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "messageCount", Value: 1}, {Key: "totalRequests", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now}}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "createdAt", Value: now}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc usageDoc
	err := s.usage.FindOneAndUpdate(ctx, bson.D{{Key: "userId", Value: string(userID)}}, update, opts).Decode(&doc)
	if err != nil {
		return nil, domain.StorageFailure("mongo RecordUsage", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) GetUsage(ctx context.Context, userID domain.UserID) (*domain.UserUsage, error) {
	var doc usageDoc
	err := s.usage.FindOne(ctx, bson.D{{Key: "userId", Value: string(userID)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.StorageFailure("mongo GetUsage", err)
	}
	return doc.toDomain(), nil
}
