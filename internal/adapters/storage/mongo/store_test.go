package mongo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	mongostore "github.com/PabloGalante/ask-michael/internal/adapters/storage/mongo"
	"github.com/PabloGalante/ask-michael/internal/domain"
)

func TestAcquireWithoutURI(t *testing.T) {
	m := mongostore.NewManager(mongostore.Options{})

	_, err := m.Acquire(context.Background())
	if !errors.Is(err, domain.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("Close on unconnected manager: %v", err)
	}
}

func TestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	mt.Run("record usage returns post-image", func(mt *mtest.T) {
		store := mongostore.NewStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "userId", Value: "u1"},
			{Key: "messageCount", Value: int32(3)},
			{Key: "totalRequests", Value: int32(7)},
			{Key: "createdAt", Value: created},
			{Key: "updatedAt", Value: created.Add(time.Hour)},
		}}))

		u, err := store.RecordUsage(ctx, "u1")
		if err != nil {
			mt.Fatalf("RecordUsage failed: %v", err)
		}
		if u.MessageCount != 3 || u.TotalRequests != 7 || u.UserID != "u1" {
			mt.Fatalf("unexpected usage: %+v", u)
		}
	})

	mt.Run("get usage absent is not found", func(mt *mtest.T) {
		store := mongostore.NewStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".user_usage", mtest.FirstBatch))

		if _, err := store.GetUsage(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("create without pre-image is an insert", func(mt *mtest.T) {
		store := mongostore.NewStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		conv, outcome, err := store.Create(ctx, domain.CreateInput{ID: "c1", UserID: "u1"})
		if err != nil {
			mt.Fatalf("Create failed: %v", err)
		}
		if outcome != domain.Inserted || conv.Starred || !conv.CreatedAt.Equal(conv.UpdatedAt) {
			mt.Fatalf("unexpected insert result: %v %+v", outcome, conv)
		}
		if conv.Title != domain.DefaultTitle {
			mt.Fatalf("expected default title, got %q", conv.Title)
		}
	})

	mt.Run("create with pre-image keeps starred and createdAt", func(mt *mtest.T) {
		store := mongostore.NewStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "starred", Value: true},
			{Key: "createdAt", Value: created},
		}}))

		conv, outcome, err := store.Create(ctx, domain.CreateInput{ID: "c1", UserID: "u1", Title: "Rodding shop"})
		if err != nil {
			mt.Fatalf("Create failed: %v", err)
		}
		if outcome != domain.Updated || !conv.Starred || !conv.CreatedAt.Equal(created) {
			mt.Fatalf("unexpected update result: %v %+v", outcome, conv)
		}
		if conv.Title != "Rodding shop" {
			mt.Fatalf("expected new title, got %q", conv.Title)
		}
	})

	mt.Run("list decodes server-sorted documents", func(mt *mtest.T) {
		store := mongostore.NewStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".conversations", mtest.FirstBatch,
			bson.D{
				{Key: "conversationId", Value: "pinned"},
				{Key: "userId", Value: "u1"},
				{Key: "starred", Value: true},
				{Key: "messages", Value: bson.A{bson.D{{Key: "role", Value: "user"}, {Key: "content", Value: "hi"}}}},
			},
			bson.D{
				{Key: "conversationId", Value: "plain"},
				{Key: "userId", Value: "u1"},
				{Key: "starred", Value: false},
			},
		))

		convs, err := store.ListForUser(ctx, "u1")
		if err != nil {
			mt.Fatalf("ListForUser failed: %v", err)
		}
		if len(convs) != 2 || convs[0].ID != "pinned" || convs[1].ID != "plain" {
			mt.Fatalf("unexpected list: %+v", convs)
		}
		if len(convs[0].Messages) != 1 || convs[0].Messages[0].Role != domain.RoleUser {
			mt.Fatalf("messages not decoded: %+v", convs[0].Messages)
		}
	})

	mt.Run("rename missing is not found", func(mt *mtest.T) {
		store := mongostore.NewStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		if err := store.Rename(ctx, "c1", "u1", "x"); !errors.Is(err, domain.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("delete missing is not found", func(mt *mtest.T) {
		store := mongostore.NewStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		if err := store.Delete(ctx, "c1", "u1"); !errors.Is(err, domain.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("toggle pin returns new value", func(mt *mtest.T) {
		store := mongostore.NewStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{{Key: "starred", Value: true}}}))

		starred, err := store.TogglePin(ctx, "c1", "u1")
		if err != nil || !starred {
			mt.Fatalf("expected starred=true, got %v, %v", starred, err)
		}
	})

	mt.Run("append returns post-image in order", func(mt *mtest.T) {
		store := mongostore.NewStore(mt.DB)
		first, second := created.Add(time.Minute), created.Add(2*time.Minute)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "conversationId", Value: "c1"},
			{Key: "userId", Value: "u1"},
			{Key: "title", Value: domain.DefaultTitle},
			{Key: "messages", Value: bson.A{
				bson.D{{Key: "role", Value: "user"}, {Key: "content", Value: "m1"}, {Key: "createdAt", Value: first}},
				bson.D{{Key: "role", Value: "assistant"}, {Key: "content", Value: "m2"}, {Key: "createdAt", Value: second}},
			}},
			{Key: "createdAt", Value: created},
			{Key: "updatedAt", Value: second},
		}}))

		conv, err := store.Append(ctx, "c1", "u1", []domain.Message{{Role: domain.RoleAssistant, Content: "m2"}})
		if err != nil {
			mt.Fatalf("Append failed: %v", err)
		}
		if len(conv.Messages) != 2 || conv.Messages[0].Content != "m1" || conv.Messages[1].Content != "m2" {
			mt.Fatalf("expected [m1 m2], got %+v", conv.Messages)
		}
		if conv.Messages[1].Role != domain.RoleAssistant {
			mt.Fatalf("unexpected role %q", conv.Messages[1].Role)
		}
		for i, want := range []time.Time{first, second} {
			got := conv.Messages[i].CreatedAt
			if got == nil || !got.Equal(want) {
				mt.Fatalf("message %d: expected createdAt %v, got %v", i, want, got)
			}
		}
		if !conv.CreatedAt.Equal(created) || !conv.UpdatedAt.Equal(second) {
			mt.Fatalf("unexpected conversation times: %v %v", conv.CreatedAt, conv.UpdatedAt)
		}
	})

	mt.Run("server error is a storage error", func(mt *mtest.T) {
		store := mongostore.NewStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad value",
		}))

		_, err := store.Append(ctx, "c1", "u1", []domain.Message{{Role: domain.RoleUser, Content: "hi"}})
		if !errors.Is(err, domain.ErrStorage) {
			mt.Fatalf("expected ErrStorage, got %v", err)
		}
	})
}
