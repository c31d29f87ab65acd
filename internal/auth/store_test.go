package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hitoshi/uploadman/internal/model"
)

func TestMemoryStore_CreateAndFind(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	cred := &model.Credential{
		Username:       "alice",
		HashedPassword: "hashed",
		Email:          "alice@example.com",
		FullName:       "Alice Doe",
	}

	if err := store.Create(ctx, cred); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := store.Find(ctx, "alice")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if got == nil {
		t.Fatal("expected credential, got nil")
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q, want %q", got.Username, "alice")
	}
	if got.HashedPassword != "hashed" {
		t.Errorf("HashedPassword = %q, want %q", got.HashedPassword, "hashed")
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "alice@example.com")
	}
	if got.FullName != "Alice Doe" {
		t.Errorf("FullName = %q, want %q", got.FullName, "Alice Doe")
	}
}

func TestMemoryStore_Find_Missing_ReturnsNilNil(t *testing.T) {
	store := NewMemoryStore()

	got, err := store.Find(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil credential for missing user, got %+v", got)
	}
}

func TestMemoryStore_Create_Duplicate_ReturnsErrUsernameTaken(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	cred := &model.Credential{Username: "alice", HashedPassword: "h1"}
	if err := store.Create(ctx, cred); err != nil {
		t.Fatalf("first Create returned error: %v", err)
	}

	dup := &model.Credential{Username: "alice", HashedPassword: "h2"}
	err := store.Create(ctx, dup)
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	// 先勝ちであること
	got, _ := store.Find(ctx, "alice")
	if got.HashedPassword != "h1" {
		t.Errorf("HashedPassword = %q, want first writer's %q", got.HashedPassword, "h1")
	}
}

func TestMemoryStore_Create_ConcurrentSameUsername_ExactlyOneWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	var successes atomic.Int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cred := &model.Credential{
				Username:       "alice",
				HashedPassword: fmt.Sprintf("hash-%d", i),
			}
			if err := store.Create(ctx, cred); err == nil {
				successes.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if got := successes.Load(); got != 1 {
		t.Errorf("concurrent Create successes = %d, want exactly 1", got)
	}
}

func TestMemoryStore_Find_ReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, &model.Credential{Username: "alice", Email: "a@x.com"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	first, _ := store.Find(ctx, "alice")
	first.Email = "mutated@x.com"

	second, _ := store.Find(ctx, "alice")
	if second.Email != "a@x.com" {
		t.Errorf("stored credential mutated through returned pointer: Email = %q", second.Email)
	}
}
