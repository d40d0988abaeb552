package ai

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/chevai/smartchat/internal/smartchat/catalog"
)

func testCatalog() *catalog.MemoryGateway {
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	return catalog.NewMemoryGateway(
		catalog.Product{
			ID: "p1", Name: "Áo thun relaxed fit đen", Price: 250000,
			Type: catalog.TypeRelaxedFit, Images: []string{"relaxed.jpg"},
			AddedAt: base,
		},
		catalog.Product{
			ID: "p2", Name: "Hoodie nỉ bông xám", Price: 350000,
			Type: catalog.TypeHoodie, Images: []string{"hoodie.jpg"},
			Bestseller: true, AddedAt: base.AddDate(0, 0, 1),
		},
		catalog.Product{
			ID: "p3", Name: "Quần jogger túi hộp", Price: 300000,
			Type: catalog.TypeJogger, Images: []string{"jogger.jpg"},
			AddedAt: base.AddDate(0, 0, 2),
		},
	)
}

func newTestCore(contexts *ContextStore) *CoreResponder {
	return NewCoreResponder(testCatalog(), contexts, nil, rand.New(rand.NewSource(1)))
}

func TestCoreResponderGreeting(t *testing.T) {
	core := newTestCore(nil)

	resp := core.Respond(context.Background(), "chào shop", "room-1")

	if resp.Provider != ProviderCore {
		t.Fatalf("provider = %q, want %q", resp.Provider, ProviderCore)
	}
	variants := DefaultTemplatePack().Greetings[LangVietnamese]
	found := false
	for _, v := range variants {
		if resp.Message == v {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("greeting %q not among template variants", resp.Message)
	}
}

func TestCoreResponderProductSearchListsPriceAndRemembers(t *testing.T) {
	contexts := NewContextStoreAt(newTestClock().Now)
	core := newTestCore(contexts)

	resp := core.Respond(context.Background(), "shop có hoodie không", "room-1")

	if !strings.Contains(resp.Message, "Hoodie nỉ bông xám") {
		t.Fatalf("reply %q does not name the hoodie", resp.Message)
	}
	if !strings.Contains(resp.Message, "350k") {
		t.Fatalf("reply %q does not carry the formatted price", resp.Message)
	}
	if resp.Image != "hoodie.jpg" {
		t.Fatalf("image = %q, want the first image of the top match", resp.Image)
	}

	c := contexts.Get("room-1")
	if c == nil {
		t.Fatal("product search left no conversation context")
	}
	if c.LastAction != ActionAskedForImage {
		t.Fatalf("LastAction = %q, want %q", c.LastAction, ActionAskedForImage)
	}
	if c.LastProduct == nil || c.LastProduct.ID != "p2" {
		t.Fatalf("LastProduct = %+v, want p2", c.LastProduct)
	}
}

func TestCoreResponderRelatedTypeFallback(t *testing.T) {
	// Catalog with sweaters only: a hoodie request should surface them.
	gw := catalog.NewMemoryGateway(catalog.Product{
		ID: "s1", Name: "Sweater len cổ tròn", Price: 320000,
		Type: catalog.TypeSweater,
	})
	core := NewCoreResponder(gw, nil, nil, rand.New(rand.NewSource(1)))

	resp := core.Respond(context.Background(), "có hoodie không shop", "room-1")

	if !strings.Contains(resp.Message, "Sweater len cổ tròn") {
		t.Fatalf("reply %q does not offer the related sweater", resp.Message)
	}
}

func TestCoreResponderSizeAdvice(t *testing.T) {
	core := newTestCore(nil)

	resp := core.Respond(context.Background(), "mình nặng 60kg mặc size gì", "room-1")

	if !strings.Contains(resp.Message, "size M") {
		t.Fatalf("reply %q, want size M for 60kg", resp.Message)
	}
}

func TestCoreResponderSizeAdviceWithoutWeight(t *testing.T) {
	core := newTestCore(nil)

	resp := core.Respond(context.Background(), "shop cho hỏi size nào vừa", "room-1")

	if !strings.Contains(resp.Message, "cân nặng") {
		t.Fatalf("reply %q should ask for the weight", resp.Message)
	}
}

func TestCoreResponderRulePrecedence(t *testing.T) {
	contexts := NewContextStoreAt(newTestClock().Now)
	core := newTestCore(contexts)

	// Both product_search and price_inquiry fire; the product listing wins.
	resp := core.Respond(context.Background(), "hoodie giá bao nhiêu", "room-1")

	if !strings.Contains(resp.Message, "Bạn muốn xem ảnh") {
		t.Fatalf("reply %q, want the product listing branch", resp.Message)
	}
	if strings.Contains(resp.Message, "Giá hiện tại") {
		t.Fatalf("reply %q took the price branch over the product listing", resp.Message)
	}
}

func TestCoreResponderDefaultFallback(t *testing.T) {
	core := newTestCore(nil)

	resp := core.Respond(context.Background(), "xyzzy", "room-1")

	if resp.Message == "" {
		t.Fatal("default reply is empty")
	}
	variants := DefaultTemplatePack().Defaults[LangEnglish]
	found := false
	for _, v := range variants {
		if resp.Message == v {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("default %q not among template variants", resp.Message)
	}
}

func TestCoreResponderEnglishReply(t *testing.T) {
	core := newTestCore(nil)

	resp := core.Respond(context.Background(), "do you have any hoodie", "room-1")

	if !strings.Contains(resp.Message, "Here is what we have") {
		t.Fatalf("reply %q, want english phrasing for an english query", resp.Message)
	}
}
