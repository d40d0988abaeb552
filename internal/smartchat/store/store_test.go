package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/chevai/smartchat/internal/smartchat/catalog"
	"github.com/chevai/smartchat/internal/smartchat/learning"
	"github.com/chevai/smartchat/internal/smartchat/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "smartchat-test-*.db")
	if err != nil {
		t.Fatalf("create temp db file: %v", err)
	}
	f.Close()

	s, err := store.Open(f.Name())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "smartchat-test-*.db")
	if err != nil {
		t.Fatalf("create temp db file: %v", err)
	}
	f.Close()

	s, err := store.Open(f.Name())
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s.Close()

	// Migrations must not re-run on an already-migrated database.
	s, err = store.Open(f.Name())
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	s.Close()
}

func TestSaveAndLoadMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)

	for i, body := range []string{"chào shop", "chào bạn, shop nghe đây!", "có hoodie không"} {
		role := store.RoleCustomer
		if i == 1 {
			role = store.RoleAssistant
		}
		msg := &store.Message{
			RoomID:   "room-1",
			SenderID: "user-1",
			Role:     role,
			Body:     body,
			SentAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
		if msg.ID == "" {
			t.Fatal("SaveMessage left the ID empty")
		}
	}

	// A message in another room must not leak in.
	other := &store.Message{RoomID: "room-2", SenderID: "user-2", Role: store.RoleCustomer, Body: "hi", SentAt: base}
	if err := s.SaveMessage(ctx, other); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	got, err := s.RecentMessages(ctx, "room-1", 10)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3", len(got))
	}
	if got[0].Body != "chào shop" || got[2].Body != "có hoodie không" {
		t.Fatalf("messages out of order: %q ... %q", got[0].Body, got[2].Body)
	}
	if got[1].Role != store.RoleAssistant {
		t.Fatalf("role = %q, want assistant", got[1].Role)
	}
}

func TestRecentMessagesLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		msg := &store.Message{
			RoomID:   "room-1",
			SenderID: "user-1",
			Role:     store.RoleCustomer,
			Body:     string(rune('a' + i)),
			SentAt:   base.Add(time.Duration(i) * time.Second),
		}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
	}

	got, err := s.RecentMessages(ctx, "room-1", 2)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	// The limit keeps the newest messages, still oldest first.
	if got[0].Body != "d" || got[1].Body != "e" {
		t.Fatalf("got %q, %q, want d, e", got[0].Body, got[1].Body)
	}
}

func TestCatalogGatewayOverStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	gw := catalog.NewSQLGateway(s.DB())

	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	products := []catalog.Product{
		{ID: "p1", Name: "Áo thun relaxed fit", Price: 250000, Type: catalog.TypeRelaxedFit,
			Sizes: []string{"M", "L"}, Images: []string{"relaxed.jpg"}, AddedAt: base},
		{ID: "p2", Name: "Hoodie nỉ bông", Price: 350000, Type: catalog.TypeHoodie,
			Bestseller: true, Images: []string{"hoodie.jpg"}, AddedAt: base.AddDate(0, 0, 1)},
	}
	for _, p := range products {
		if err := gw.Insert(ctx, p); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	byType, err := gw.FindByType(ctx, []catalog.Type{catalog.TypeHoodie}, 5, catalog.SortBestsellerFirst)
	if err != nil {
		t.Fatalf("FindByType: %v", err)
	}
	if len(byType) != 1 || byType[0].ID != "p2" {
		t.Fatalf("FindByType = %+v, want p2", byType)
	}
	if !byType[0].Bestseller || byType[0].Images[0] != "hoodie.jpg" {
		t.Fatalf("round-trip lost fields: %+v", byType[0])
	}

	named, err := gw.FindByNamePattern(ctx, "thun relaxed", 5)
	if err != nil {
		t.Fatalf("FindByNamePattern: %v", err)
	}
	if len(named) != 1 || named[0].ID != "p1" {
		t.Fatalf("FindByNamePattern = %+v, want p1", named)
	}
	if len(named[0].Sizes) != 2 {
		t.Fatalf("sizes = %v, want 2 entries", named[0].Sizes)
	}
}

func TestLearningStoreOverStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ls := learning.NewSQLStore(s.DB())

	if _, err := ls.Get(ctx, "ghost"); err != learning.ErrProfileNotFound {
		t.Fatalf("Get unknown = %v, want ErrProfileNotFound", err)
	}

	profile := learning.NewProfile("user-1")
	profile.Statistics.Messages = 4
	profile.UpdatedAt = time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)
	if err := ls.Put(ctx, profile); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := ls.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Statistics.Messages != 4 {
		t.Fatalf("messages = %d, want 4", got.Statistics.Messages)
	}
	if got.Scorer == nil {
		t.Fatal("scorer lost in round trip")
	}
}
