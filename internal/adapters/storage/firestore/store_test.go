package firestore_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	firestorestore "github.com/PabloGalante/ask-michael/internal/adapters/storage/firestore"
	"github.com/PabloGalante/ask-michael/internal/domain"
)

// newEmulatorStore connects to the Firestore emulator; the tests are skipped
// when FIRESTORE_EMULATOR_HOST is not set.
func newEmulatorStore(t *testing.T) *firestorestore.Store {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	store, err := firestorestore.NewStore(context.Background(), "askmichael-test")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewStoreRequiresProject(t *testing.T) {
	_, err := firestorestore.NewStore(context.Background(), "")
	if !errors.Is(err, domain.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
}

func TestConversationLifecycle(t *testing.T) {
	store := newEmulatorStore(t)
	ctx := context.Background()
	user := domain.UserID("user-" + uuid.NewString())
	id := domain.ConversationID(uuid.NewString())

	conv, outcome, err := store.Create(ctx, domain.CreateInput{ID: id, UserID: user})
	if err != nil || outcome != domain.Inserted {
		t.Fatalf("Create: %v %v", outcome, err)
	}
	if conv.Starred || !conv.CreatedAt.Equal(conv.UpdatedAt) {
		t.Fatalf("unexpected insert state: %+v", conv)
	}

	if _, err := store.TogglePin(ctx, id, user); err != nil {
		t.Fatalf("TogglePin failed: %v", err)
	}

	updated, outcome, err := store.Create(ctx, domain.CreateInput{ID: id, UserID: user, Title: "Pot room"})
	if err != nil || outcome != domain.Updated {
		t.Fatalf("second Create: %v %v", outcome, err)
	}
	if !updated.Starred || !updated.CreatedAt.Equal(conv.CreatedAt) {
		t.Fatalf("update lost starred/createdAt: %+v", updated)
	}

	if _, err := store.Append(ctx, id, user, []domain.Message{{Role: domain.RoleUser, Content: "m1"}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	got, err := store.Append(ctx, id, user, []domain.Message{{Role: domain.RoleAssistant, Content: "m2"}})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[0].Content != "m1" || got.Messages[1].Content != "m2" {
		t.Fatalf("expected [m1 m2], got %+v", got.Messages)
	}

	if err := store.Delete(ctx, id, user); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, id, user); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRecordUsageConcurrent(t *testing.T) {
	store := newEmulatorStore(t)
	ctx := context.Background()
	user := domain.UserID("user-" + uuid.NewString())

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.RecordUsage(ctx, user); err != nil {
				t.Errorf("RecordUsage failed: %v", err)
			}
		}()
	}
	wg.Wait()

	u, err := store.GetUsage(ctx, user)
	if err != nil {
		t.Fatalf("GetUsage failed: %v", err)
	}
	if u.MessageCount != n || u.TotalRequests != n {
		t.Fatalf("expected %d/%d, got %d/%d", n, n, u.MessageCount, u.TotalRequests)
	}
}

func TestListForUserOrdering(t *testing.T) {
	store := newEmulatorStore(t)
	ctx := context.Background()
	user := domain.UserID("user-" + uuid.NewString())

	for i, pinned := range []bool{false, true, false, true} {
		id := domain.ConversationID(fmt.Sprintf("c%d", i))
		if _, _, err := store.Create(ctx, domain.CreateInput{ID: id, UserID: user}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if pinned {
			if _, err := store.TogglePin(ctx, id, user); err != nil {
				t.Fatalf("TogglePin failed: %v", err)
			}
		}
		time.Sleep(5 * time.Millisecond)
	}

	convs, err := store.ListForUser(ctx, user)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}

	want := []domain.ConversationID{"c3", "c1", "c2", "c0"}
	if len(convs) != len(want) {
		t.Fatalf("expected %d conversations, got %d", len(want), len(convs))
	}
	for i, c := range convs {
		if c.ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], c.ID)
		}
	}
}
