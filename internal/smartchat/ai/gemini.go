package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/chevai/smartchat/internal/smartchat/catalog"
)

// ErrProviderUnavailable marks a generative failure caused by provider
// capacity (rate limits, quota, overload). The router treats it as a signal
// to fall back to the deterministic responder; any other error is handled
// inside the responder itself.
var ErrProviderUnavailable = errors.New("generative provider unavailable")

// Generator is the minimal surface of a text-generation backend.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// geminiProductLimit bounds the catalog snapshot embedded in a prompt.
const geminiProductLimit = 10

// defaultGenerateTimeout bounds one model call.
const defaultGenerateTimeout = 15 * time.Second

// GeminiResponder answers with a generative model, wrapped in deterministic
// pre and post passes: follow-up confirmations and numbered product picks
// are resolved locally without spending a model call, and every generated
// reply gets an image-attachment decision before it leaves.
type GeminiResponder struct {
	catalog   catalog.Gateway
	contexts  *ContextStore
	gen       Generator
	templates *TemplatePack
	rnd       *rand.Rand
	timeout   time.Duration
}

// NewGeminiResponder wires a generative responder. A zero timeout gets the
// default.
func NewGeminiResponder(gw catalog.Gateway, contexts *ContextStore, gen Generator, timeout time.Duration) *GeminiResponder {
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	return &GeminiResponder{
		catalog:   gw,
		contexts:  contexts,
		gen:       gen,
		templates: DefaultTemplatePack(),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		timeout:   timeout,
	}
}

// Respond produces a generative reply. The only error it returns is
// ErrProviderUnavailable (possibly wrapped); everything else degrades to a
// local reply so the caller sees either a usable Response or a fallback
// signal.
func (r *GeminiResponder) Respond(ctx context.Context, message, roomID string) (Response, error) {
	if resp, ok := r.confirmationShortCircuit(message, roomID); ok {
		return resp, nil
	}
	if resp, ok := r.numberedSelection(message, roomID); ok {
		return resp, nil
	}
	if resp, ok := r.nameSelection(message, roomID); ok {
		return resp, nil
	}

	products, err := r.promptProducts(ctx, message, roomID)
	if err != nil {
		slog.Warn("gemini responder catalog lookup failed", "err", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.gen.Generate(genCtx, r.buildPrompt(message, roomID, products))
	if err != nil {
		// A timed-out model call is a capacity problem, same as a rate limit.
		if errors.Is(err, context.DeadlineExceeded) {
			return Response{}, fmt.Errorf("generate: %w: %v", ErrProviderUnavailable, err)
		}
		if errors.Is(err, ErrProviderUnavailable) {
			return Response{}, fmt.Errorf("generate: %w", err)
		}
		slog.Warn("gemini generate failed, using static fallback", "err", err)
		return r.staticFallback(ctx, message, roomID), nil
	}

	return r.finishReply(message, roomID, strings.TrimSpace(text), products), nil
}

// confirmationShortCircuit resolves "có" after an image offer without a
// model call: the cached product's photo is the whole answer.
func (r *GeminiResponder) confirmationShortCircuit(message, roomID string) (Response, bool) {
	if r.contexts == nil || !r.contexts.IsImageConfirmation(message, roomID) {
		return Response{}, false
	}
	product := r.contexts.LastMentionedProduct(roomID)
	if product == nil {
		return Response{}, false
	}

	lang := languageForRoom(r.contexts, message, roomID)
	msg := fmt.Sprintf("Đây là ảnh mẫu %s nha bạn! Giá %s, bạn thấy sao?", product.Name, FormatPrice(product.Price))
	if lang == LangEnglish {
		msg = fmt.Sprintf("Here is %s! It goes for %s, what do you think?", product.Name, FormatPrice(product.Price))
	}

	r.contexts.Update(roomID, func(c *Context) {
		c.LastAction = ActionShowedImage
		c.LastResponse = msg
		c.Provider = ProviderGemini
	})
	return Response{Message: msg, Image: product.FirstImage(), Provider: ProviderGemini}, true
}

// numberedSelection resolves "sản phẩm 2" against the numbered list the
// assistant previously sent. An out-of-range pick gets an apology naming
// the valid range instead of a hallucinated product.
func (r *GeminiResponder) numberedSelection(message, roomID string) (Response, bool) {
	if r.contexts == nil {
		return Response{}, false
	}
	m := numberedRefPattern.FindStringSubmatch(strings.ToLower(message))
	if m == nil {
		return Response{}, false
	}
	c := r.contexts.Get(roomID)
	if c == nil || len(c.LastProducts) == 0 {
		return Response{}, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Response{}, false
	}
	if n < 1 || n > len(c.LastProducts) {
		msg := fmt.Sprintf("Dạ shop chỉ vừa gửi %d sản phẩm thôi ạ, bạn chọn từ 1 đến %d giúp mình nha!",
			len(c.LastProducts), len(c.LastProducts))
		return Response{Message: msg, Provider: ProviderGemini}, true
	}

	return r.selectionReply(roomID, c.LastProducts[n-1]), true
}

// nameSelection resolves a pick of a previously listed product by name
// ("mình lấy hoodie đi") without a model call. The pick must name exactly
// one listed product; an ambiguous or unmatched name goes to the model.
func (r *GeminiResponder) nameSelection(message, roomID string) (Response, bool) {
	if r.contexts == nil {
		return Response{}, false
	}
	c := r.contexts.Get(roomID)
	if c == nil || len(c.LastProducts) == 0 {
		return Response{}, false
	}

	lower := strings.ToLower(message)
	if sizeInquiryPattern.MatchString(lower) {
		return Response{}, false
	}
	if !isSelectionPhrase(lower) {
		return Response{}, false
	}
	words := selectionKeywords(lower)
	if len(words) == 0 {
		return Response{}, false
	}

	var picked *catalog.Product
	for i := range c.LastProducts {
		name := strings.ToLower(c.LastProducts[i].Name)
		for _, w := range words {
			if strings.Contains(name, w) {
				if picked != nil && picked.ID != c.LastProducts[i].ID {
					return Response{}, false
				}
				picked = &c.LastProducts[i]
				break
			}
		}
	}
	if picked == nil {
		return Response{}, false
	}
	return r.selectionReply(roomID, *picked), true
}

// selectionReply answers a resolved product pick with its price and sizes
// and records the product as shown.
func (r *GeminiResponder) selectionReply(roomID string, product catalog.Product) Response {
	var b strings.Builder
	fmt.Fprintf(&b, "Mẫu %s giá %s nè bạn!", product.Name, FormatPrice(product.Price))
	if len(product.Sizes) > 0 {
		fmt.Fprintf(&b, " Hiện có size %s.", strings.Join(product.Sizes, ", "))
	}
	msg := b.String()

	r.contexts.Update(roomID, func(c *Context) {
		c.LastAction = ActionShowedImage
		c.LastProduct = &product
		c.LastResponse = msg
		c.Provider = ProviderGemini
	})
	return Response{Message: msg, Image: product.FirstImage(), Provider: ProviderGemini}
}

// promptProducts picks the catalog slice shown to the model. A pronoun
// reference ("mẫu này") without a product type reuses the list the room
// already saw; a selection phrase searches the catalog by the named words;
// otherwise typed matches, then bestsellers.
func (r *GeminiResponder) promptProducts(ctx context.Context, message, roomID string) ([]catalog.Product, error) {
	lower := strings.ToLower(message)
	analysis := AnalyzeIntent(message)

	if len(analysis.ProductTypes) == 0 && previousRefPattern.MatchString(lower) && r.contexts != nil {
		if c := r.contexts.Get(roomID); c != nil && len(c.LastProducts) > 0 {
			return c.LastProducts, nil
		}
	}

	if isSelectionPhrase(lower) {
		if words := selectionKeywords(lower); len(words) > 0 {
			products, err := r.catalog.FindByNamePattern(ctx, strings.Join(words, " "), geminiProductLimit)
			if err == nil && len(products) > 0 {
				return products, nil
			}
		}
	}

	if len(analysis.ProductTypes) > 0 {
		products, err := r.catalog.FindByType(ctx, analysis.ProductTypes, geminiProductLimit, catalog.SortBestsellerFirst)
		if err != nil || len(products) > 0 {
			return products, err
		}
	}
	return r.catalog.FindBestsellers(ctx, geminiProductLimit)
}

// buildPrompt assembles the persona, the numbered catalog snapshot, the
// recent conversation state and the user message into one prompt.
func (r *GeminiResponder) buildPrompt(message, roomID string, products []catalog.Product) string {
	var b strings.Builder
	b.WriteString("Bạn là nhân viên tư vấn của shop thời trang CheVai. ")
	b.WriteString("Trả lời ngắn gọn, thân thiện, xưng hô \"shop\" với \"bạn\". ")
	b.WriteString("Chỉ tư vấn các sản phẩm trong danh sách, không bịa sản phẩm khác. ")
	b.WriteString("Khi gợi ý sản phẩm hãy giữ đúng số thứ tự trong danh sách.\n\n")

	if len(products) > 0 {
		b.WriteString("Danh sách sản phẩm:\n")
		for i, p := range products {
			fmt.Fprintf(&b, "%d. %s - %s", i+1, p.Name, FormatPrice(p.Price))
			if p.Description != "" {
				fmt.Fprintf(&b, " (%s)", p.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if r.contexts != nil {
		if c := r.contexts.Get(roomID); c != nil && c.LastResponse != "" {
			fmt.Fprintf(&b, "Tin nhắn trước của shop: %s\n\n", c.LastResponse)
		}
	}

	fmt.Fprintf(&b, "Khách hàng: %s", message)
	return b.String()
}

// finishReply applies the image-attachment decision and records the turn in
// the conversation context.
func (r *GeminiResponder) finishReply(message, roomID, text string, products []catalog.Product) Response {
	resp := Response{Message: text, Provider: ProviderGemini}

	mentioned := mentionedProducts(text, products)
	attach := shouldAttachImage(message, text, r.contexts, roomID, len(mentioned) > 0)

	var first *catalog.Product
	if len(mentioned) > 0 {
		first = &mentioned[0]
	} else if len(products) > 0 {
		first = &products[0]
	}

	action := ActionMentionedProduct
	if attach && first != nil {
		resp.Image = first.FirstImage()
		action = ActionShowedImage
	} else if strings.Contains(strings.ToLower(text), "xem ảnh") {
		action = ActionAskedForImage
	}

	if r.contexts != nil && first != nil {
		remembered := mentioned
		if len(remembered) == 0 {
			remembered = products
		}
		r.contexts.Set(roomID, Context{
			LastAction:    action,
			LastProduct:   first,
			LastProducts:  remembered,
			LastResponse:  text,
			OriginalQuery: message,
			Provider:      ProviderGemini,
		})
	}
	return resp
}

// mentionedProducts returns the prompt products whose names appear in the
// generated text, in prompt order.
func mentionedProducts(text string, products []catalog.Product) []catalog.Product {
	lower := strings.ToLower(text)
	var out []catalog.Product
	for _, p := range products {
		if p.Name != "" && strings.Contains(lower, strings.ToLower(p.Name)) {
			out = append(out, p)
		}
	}
	return out
}

// shouldAttachImage decides whether the reply carries a product photo. Any
// one signal is enough: the user asked for an image, referenced a specific
// product, confirmed a pending offer, the reply itself talks about a photo,
// or the reply is recommending a concrete product.
func shouldAttachImage(message, reply string, contexts *ContextStore, roomID string, recommending bool) bool {
	lowerMsg := strings.ToLower(message)
	lowerReply := strings.ToLower(reply)

	userWantsImage := showImagePattern.MatchString(lowerMsg)
	userAsksSpecific := previousRefPattern.MatchString(lowerMsg)
	userConfirms := contexts != nil && contexts.IsImageConfirmation(message, roomID)
	replyMentionsImage := strings.Contains(lowerReply, "ảnh") || strings.Contains(lowerReply, "hình") ||
		strings.Contains(lowerReply, "image") || strings.Contains(lowerReply, "photo")

	return userWantsImage || userAsksSpecific || userConfirms || replyMentionsImage || recommending
}

// staticFallback answers locally when the model errored for a non-capacity
// reason. Keyword-driven, so the customer still gets something on topic.
func (r *GeminiResponder) staticFallback(ctx context.Context, message, roomID string) Response {
	analysis := AnalyzeIntent(message)
	if len(analysis.ProductTypes) > 0 {
		products, err := r.catalog.FindByType(ctx, analysis.ProductTypes, coreProductLimit, catalog.SortBestsellerFirst)
		if err == nil && len(products) > 0 {
			var b strings.Builder
			b.WriteString("Shop đang có mấy mẫu này nè:\n")
			for i, p := range products {
				fmt.Fprintf(&b, "%d. %s - %s\n", i+1, p.Name, FormatPrice(p.Price))
			}
			b.WriteString("Bạn muốn xem ảnh mẫu nào không?")
			msg := b.String()
			if r.contexts != nil {
				first := products[0]
				r.contexts.Set(roomID, Context{
					LastAction:    ActionAskedForImage,
					LastProduct:   &first,
					LastProducts:  products,
					LastResponse:  msg,
					OriginalQuery: message,
					Provider:      ProviderGemini,
				})
			}
			return Response{Message: msg, Provider: ProviderGemini}
		}
	}
	return Response{
		Message:  r.templates.Apology(languageForRoom(r.contexts, message, roomID), r.rnd),
		Provider: ProviderGemini,
	}
}

// languageForRoom prefers the language of the current message and falls back
// to the language of the cached query.
func languageForRoom(contexts *ContextStore, message, roomID string) Language {
	if lang := DetectLanguage(message); lang == LangVietnamese {
		return lang
	}
	if contexts != nil {
		if c := contexts.Get(roomID); c != nil && c.OriginalQuery != "" {
			return DetectLanguage(c.OriginalQuery)
		}
	}
	return DetectLanguage(message)
}
