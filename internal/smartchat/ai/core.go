package ai

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/chevai/smartchat/internal/smartchat/catalog"
)

// coreProductLimit bounds how many products a deterministic reply lists.
const coreProductLimit = 5

// relatedTypes maps a product type to the substitutes offered when the
// requested type has no stock. Relaxed-fit and ringer shirts are t-shirt
// cuts, hoodies and sweaters cover for each other.
var relatedTypes = map[catalog.Type][]catalog.Type{
	catalog.TypeTShirt:     {catalog.TypeRelaxedFit, catalog.TypeRinger},
	catalog.TypeRelaxedFit: {catalog.TypeTShirt, catalog.TypeRinger},
	catalog.TypeRinger:     {catalog.TypeTShirt, catalog.TypeRelaxedFit},
	catalog.TypeHoodie:     {catalog.TypeSweater},
	catalog.TypeSweater:    {catalog.TypeHoodie},
}

// CoreResponder produces template-based replies from intent analysis alone.
// It never calls an external model, so it always answers and costs nothing;
// the router uses it for simple queries and as the generative fallback.
type CoreResponder struct {
	catalog   catalog.Gateway
	contexts  *ContextStore
	templates *TemplatePack
	rnd       *rand.Rand
	rules     []responseRule
}

// responseRule pairs an intent predicate with its reply builder. The chain
// is evaluated in declaration order and the first match answers, so the
// precedence between overlapping intents lives in one place.
type responseRule struct {
	match   func(a IntentAnalysis, products []catalog.Product) bool
	respond func(roomID, message string, lang Language, a IntentAnalysis, products []catalog.Product) Response
}

// NewCoreResponder wires a deterministic responder. A nil templates falls
// back to the embedded pack.
func NewCoreResponder(gw catalog.Gateway, contexts *ContextStore, templates *TemplatePack, rnd *rand.Rand) *CoreResponder {
	if templates == nil {
		templates = DefaultTemplatePack()
	}
	r := &CoreResponder{
		catalog:   gw,
		contexts:  contexts,
		templates: templates,
		rnd:       rnd,
	}
	r.rules = []responseRule{
		{
			match: func(a IntentAnalysis, _ []catalog.Product) bool { return a.Has(IntentGreeting) },
			respond: func(_, _ string, lang Language, _ IntentAnalysis, _ []catalog.Product) Response {
				return Response{Message: r.templates.Greeting(lang, r.rnd), Provider: ProviderCore}
			},
		},
		{
			match: func(a IntentAnalysis, products []catalog.Product) bool {
				return a.Has(IntentProductSearch) && len(products) > 0
			},
			respond: func(roomID, message string, lang Language, _ IntentAnalysis, products []catalog.Product) Response {
				return r.productsReply(roomID, message, lang, products)
			},
		},
		{
			match: func(a IntentAnalysis, _ []catalog.Product) bool { return a.Has(IntentStyleAdvice) },
			respond: func(roomID, message string, lang Language, a IntentAnalysis, products []catalog.Product) Response {
				return r.styleReply(roomID, message, lang, a, products)
			},
		},
		{
			match: func(a IntentAnalysis, products []catalog.Product) bool {
				return a.Has(IntentPriceInquiry) && len(products) > 0
			},
			respond: func(_, _ string, lang Language, _ IntentAnalysis, products []catalog.Product) Response {
				return r.priceReply(lang, products)
			},
		},
		{
			match: func(a IntentAnalysis, _ []catalog.Product) bool { return a.Has(IntentSizeInquiry) },
			respond: func(_, _ string, lang Language, a IntentAnalysis, _ []catalog.Product) Response {
				return r.sizeReply(lang, a)
			},
		},
		{
			match: func(a IntentAnalysis, products []catalog.Product) bool {
				return a.Has(IntentImageRequest) && len(products) > 0
			},
			respond: func(roomID, _ string, lang Language, _ IntentAnalysis, products []catalog.Product) Response {
				return r.imageReply(roomID, lang, products[0])
			},
		},
	}
	return r
}

// Respond classifies the message and answers from templates and the catalog.
// The first matching rule wins; an unrecognized message gets the default
// template so the responder never comes back empty.
func (r *CoreResponder) Respond(ctx context.Context, message, roomID string) Response {
	analysis := AnalyzeIntent(message)
	lang := DetectLanguage(message)

	products, err := r.searchProducts(ctx, analysis)
	if err != nil {
		slog.Warn("core responder catalog lookup failed", "err", err)
		products = nil
	}

	for _, rule := range r.rules {
		if rule.match(analysis, products) {
			return rule.respond(roomID, message, lang, analysis, products)
		}
	}
	return Response{Message: r.templates.Default(lang, r.rnd), Provider: ProviderCore}
}

// searchProducts resolves the catalog slice a reply should draw from. The
// fallback chain is requested types, then related types, then bestsellers,
// then whatever arrived most recently, so a reply can always name products.
func (r *CoreResponder) searchProducts(ctx context.Context, analysis IntentAnalysis) ([]catalog.Product, error) {
	order := catalog.SortBestsellerFirst
	if analysis.Situation.Style == StyleTrendy {
		order = catalog.SortNewestFirst
	}

	if len(analysis.ProductTypes) > 0 {
		products, err := r.catalog.FindByType(ctx, analysis.ProductTypes, coreProductLimit, order)
		if err != nil {
			return nil, err
		}
		if len(products) > 0 {
			return products, nil
		}
		if related := expandRelated(analysis.ProductTypes); len(related) > 0 {
			products, err = r.catalog.FindByType(ctx, related, coreProductLimit, order)
			if err != nil {
				return nil, err
			}
			if len(products) > 0 {
				return products, nil
			}
		}
	}

	products, err := r.catalog.FindBestsellers(ctx, coreProductLimit)
	if err != nil {
		return nil, err
	}
	if len(products) > 0 {
		return products, nil
	}
	return r.catalog.FindRecent(ctx, coreProductLimit)
}

func expandRelated(types []catalog.Type) []catalog.Type {
	seen := make(map[catalog.Type]bool, len(types))
	for _, t := range types {
		seen[t] = true
	}
	var related []catalog.Type
	for _, t := range types {
		for _, alt := range relatedTypes[t] {
			if !seen[alt] {
				seen[alt] = true
				related = append(related, alt)
			}
		}
	}
	return related
}

// productsReply lists matches with prices, attaches the first image and
// remembers the selection so a follow-up "có" can show the picture.
func (r *CoreResponder) productsReply(roomID, query string, lang Language, products []catalog.Product) Response {
	var b strings.Builder
	if lang == LangEnglish {
		b.WriteString("Here is what we have for you:\n")
	} else {
		b.WriteString("Shop gợi ý cho bạn mấy mẫu này nè:\n")
	}
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, p.Name, FormatPrice(p.Price))
	}
	if lang == LangEnglish {
		b.WriteString("Want to see a photo of any of them?")
	} else {
		b.WriteString("Bạn muốn xem ảnh mẫu nào không?")
	}

	first := products[0]
	r.rememberProducts(roomID, query, first, products, ActionAskedForImage, b.String())
	return Response{Message: b.String(), Image: first.FirstImage(), Provider: ProviderCore}
}

// styleReply answers outfit-advice questions, leaning on the situation
// extracted from the message when there is one.
func (r *CoreResponder) styleReply(roomID, query string, lang Language, analysis IntentAnalysis, products []catalog.Product) Response {
	var b strings.Builder
	switch analysis.Situation.Occasion {
	case OccasionWork:
		if lang == LangEnglish {
			b.WriteString("For the office, a clean relaxed-fit tee or a plain sweater works well.\n")
		} else {
			b.WriteString("Đi làm thì bạn nên chọn áo thun relaxed trơn hoặc sweater basic cho lịch sự nha.\n")
		}
	case OccasionSchool:
		if lang == LangEnglish {
			b.WriteString("For school, a comfy tee with joggers is an easy combo.\n")
		} else {
			b.WriteString("Đi học thì áo thun phối quần jogger là thoải mái nhất nè.\n")
		}
	default:
		if lang == LangEnglish {
			b.WriteString("For everyday wear you can't go wrong with a tee and joggers.\n")
		} else {
			b.WriteString("Mặc hằng ngày thì áo thun phối jogger là chuẩn bài luôn á.\n")
		}
	}

	if len(products) > 0 {
		if lang == LangEnglish {
			b.WriteString("A few picks:\n")
		} else {
			b.WriteString("Một vài mẫu hợp gu:\n")
		}
		for i, p := range products {
			fmt.Fprintf(&b, "%d. %s - %s", i+1, p.Name, FormatPrice(p.Price))
			if i < len(products)-1 {
				b.WriteString("\n")
			}
		}
		first := products[0]
		r.rememberProducts(roomID, query, first, products, ActionMentionedProduct, b.String())
	}
	return Response{Message: b.String(), Provider: ProviderCore}
}

func (r *CoreResponder) priceReply(lang Language, products []catalog.Product) Response {
	var b strings.Builder
	if lang == LangEnglish {
		b.WriteString("Current prices:\n")
	} else {
		b.WriteString("Giá hiện tại bên shop:\n")
	}
	for i, p := range products {
		fmt.Fprintf(&b, "%s: %s", p.Name, FormatPrice(p.Price))
		if i < len(products)-1 {
			b.WriteString("\n")
		}
	}
	return Response{Message: b.String(), Provider: ProviderCore}
}

func (r *CoreResponder) sizeReply(lang Language, analysis IntentAnalysis) Response {
	if kg := analysis.Situation.WeightKg; kg > 0 {
		size := sizeForWeight(kg)
		msg := fmt.Sprintf("Với cân nặng %dkg thì bạn mặc size %s là vừa đẹp nha!", kg, size)
		if lang == LangEnglish {
			msg = fmt.Sprintf("At %dkg, size %s should fit you well!", kg, size)
		}
		return Response{Message: msg, Provider: ProviderCore}
	}

	msg := "Shop có đủ size S, M, L, XL. Bạn cho mình xin cân nặng để tư vấn size chuẩn hơn nha!"
	if lang == LangEnglish {
		msg = "We carry sizes S through XL. Tell me your weight and I can suggest the right one!"
	}
	return Response{Message: msg, Provider: ProviderCore}
}

// imageReply sends the product's photo directly and records that it was
// shown, so the same image is not re-offered on the next turn.
func (r *CoreResponder) imageReply(roomID string, lang Language, p catalog.Product) Response {
	msg := fmt.Sprintf("Đây là ảnh mẫu %s nha bạn!", p.Name)
	if lang == LangEnglish {
		msg = fmt.Sprintf("Here is a photo of %s!", p.Name)
	}
	if r.contexts != nil {
		r.contexts.Set(roomID, Context{
			LastAction:   ActionShowedImage,
			LastProduct:  &p,
			LastResponse: msg,
			Provider:     ProviderCore,
		})
	}
	return Response{Message: msg, Image: p.FirstImage(), Provider: ProviderCore}
}

func (r *CoreResponder) rememberProducts(roomID, query string, first catalog.Product, products []catalog.Product, action Action, response string) {
	if r.contexts == nil || roomID == "" {
		return
	}
	r.contexts.Set(roomID, Context{
		LastAction:    action,
		LastProduct:   &first,
		LastProducts:  products,
		LastResponse:  response,
		OriginalQuery: query,
		Provider:      ProviderCore,
	})
}
