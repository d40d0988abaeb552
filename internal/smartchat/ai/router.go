// Package ai implements the storefront assistant brain: a deterministic
// template responder, a generative responder and the router that picks
// between them per message based on complexity, conversation context and
// the daily generative quota.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Personalizer learns per-customer style from the conversation flow and can
// occasionally answer directly from the learned profile.
type Personalizer interface {
	// LearnFromMessage ingests a customer message.
	LearnFromMessage(userID, message string)
	// LearnFromResponse ingests the reply the assistant gave.
	LearnFromResponse(userID, message string, resp Response)
	// PersonalizedResponse returns a reply built from the profile and true,
	// or false when the profile is not confident enough.
	PersonalizedResponse(userID, message string) (string, bool)
	// ReceiveFeedback records a 1 to 5 star rating on the last reply.
	ReceiveFeedback(userID string, rating int)
}

// complexity grades a message for routing.
type complexity int

const (
	complexitySimple complexity = iota
	complexityMedium
	complexityComplex
)

func (c complexity) String() string {
	switch c {
	case complexitySimple:
		return "simple"
	case complexityComplex:
		return "complex"
	default:
		return "medium"
	}
}

// Router is the single entry point for one AI turn. It never returns an
// error: every failure path lands on a deterministic reply so the customer
// always hears back.
type Router struct {
	core     *CoreResponder
	gemini   *GeminiResponder
	contexts *ContextStore
	learner  Personalizer
	quota    *QuotaCounter
}

// NewRouter wires the routing brain. learner may be nil to disable
// personalization.
func NewRouter(core *CoreResponder, gemini *GeminiResponder, contexts *ContextStore, learner Personalizer, quota *QuotaCounter) *Router {
	return &Router{
		core:     core,
		gemini:   gemini,
		contexts: contexts,
		learner:  learner,
		quota:    quota,
	}
}

// Chat answers one customer message. The returned Response always carries a
// non-empty Message; a panic anywhere below degrades to the error-fallback
// apology instead of taking the room down.
func (r *Router) Chat(ctx context.Context, message, userID, roomID string) (resp Response) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("ai turn panicked", "recover", rec, "room", roomID)
			resp = Response{
				Message:  r.core.templates.Apology(DetectLanguage(message), r.core.rnd),
				Provider: ProviderError,
				Reason:   "internal error",
			}
		}
	}()

	if r.learner != nil && userID != "" {
		r.learner.LearnFromMessage(userID, message)
	}

	resp = r.route(ctx, message, userID, roomID)

	if r.learner != nil && userID != "" {
		r.learner.LearnFromResponse(userID, message, resp)
	}

	slog.Info("ai turn",
		"room", roomID,
		"provider", resp.Provider,
		"reason", resp.Reason)
	return resp
}

// route walks the decision ladder in a fixed order: the learned profile
// first, then the quota gate, then context continuation, then complexity.
func (r *Router) route(ctx context.Context, message, userID, roomID string) Response {
	if r.learner != nil && userID != "" {
		if reply, ok := r.learner.PersonalizedResponse(userID, message); ok {
			return Response{
				Message:  reply,
				Provider: ProviderPersonalized,
				Reason:   "Personalized response needed - using learned profile",
			}
		}
	}

	if r.quota.Exhausted() {
		snap := r.quota.Snapshot()
		resp := r.core.Respond(ctx, message, roomID)
		resp.Reason = fmt.Sprintf("Gemini quota exceeded (%d/%d) - using Core AI", snap.Used, snap.Limit)
		return resp
	}

	active := r.contexts.Get(roomID) != nil
	if active && r.wantsGenerative(message, roomID) {
		return r.generative(ctx, message, roomID, "Continuing Gemini conversation context")
	}

	switch r.analyzeComplexity(message, active) {
	case complexitySimple:
		resp := r.core.Respond(ctx, message, roomID)
		resp.Reason = "Simple query - Core AI is sufficient"
		return resp
	case complexityComplex:
		return r.generative(ctx, message, roomID, "Complex query requires Gemini AI")
	}

	lower := strings.ToLower(message)
	if personalPronounPattern.MatchString(lower) {
		return r.generative(ctx, message, roomID, "Personal phrasing - using Gemini AI")
	}
	if s := extractSituation(lower); s.WeightKg > 0 {
		return r.generative(ctx, message, roomID, "Situational query - using Gemini AI")
	}

	resp := r.core.Respond(ctx, message, roomID)
	resp.Reason = "Standard query - using Core AI"
	return resp
}

// generative runs the Gemini responder and falls back to Core on capacity
// failures. The quota is only charged for a reply that actually came back.
func (r *Router) generative(ctx context.Context, message, roomID, reason string) Response {
	resp, err := r.gemini.Respond(ctx, message, roomID)
	if err != nil {
		slog.Warn("gemini unavailable, falling back to core", "err", err, "room", roomID)
		resp = r.core.Respond(ctx, message, roomID)
		resp.Provider = ProviderCoreFallback
		resp.Reason = reason + " (provider unavailable)"
		return resp
	}
	r.quota.Increment()
	resp.Reason = reason
	return resp
}

// Complexity patterns. A message is simple when it is pure social protocol
// or a plain price check, complex when it asks for advice, comparison or
// carries situational detail the templates cannot absorb.
var (
	simpleQueryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(xin\s*chào|chào|hello|hi|hey)`),
		regexp.MustCompile(`^(cảm\s*ơn|thanks|thank\s*you)`),
		regexp.MustCompile(`(tạm\s*biệt|bye|goodbye)`),
	}
	complexQueryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(tư\s*vấn|gợi\s*ý|recommend|advice|suggest)`),
		regexp.MustCompile(`(so\s*sánh|khác\s*nhau|compare|hay\s*hơn|nên\s*chọn|nên\s*mua)`),
		regexp.MustCompile(`(phối\s*đồ|phối\s*với|outfit|mix)`),
		regexp.MustCompile(`(tại\s*sao|vì\s*sao|why)`),
	}
	personalPronounPattern = regexp.MustCompile(`\b(tôi|mình|em|anh|chị|tớ|i|you|my|me)\b`)
)

func (r *Router) analyzeComplexity(message string, active bool) complexity {
	lower := strings.ToLower(strings.TrimSpace(message))

	// Any message inside a live conversation needs the context-aware path.
	if active {
		return complexityComplex
	}

	if IsAffirmation(lower) {
		return complexitySimple
	}

	for _, p := range complexQueryPatterns {
		if p.MatchString(lower) {
			return complexityComplex
		}
	}
	if len(strings.Fields(lower)) > 10 || strings.Count(lower, "?") >= 2 {
		return complexityComplex
	}
	situation := extractSituation(lower)
	if situation.Occasion != "" || situation.Style != "" {
		return complexityComplex
	}

	for _, p := range simpleQueryPatterns {
		if p.MatchString(lower) {
			return complexitySimple
		}
	}

	return complexityMedium
}

// wantsGenerative reports whether the message continues conversation state
// the deterministic responder cannot resolve: a short affirmation, pronoun
// references to an earlier product, numbered picks or a pending image offer.
func (r *Router) wantsGenerative(message, roomID string) bool {
	lower := strings.ToLower(message)
	if IsAffirmation(strings.TrimSpace(lower)) {
		return true
	}
	if previousRefPattern.MatchString(lower) || numberedRefPattern.MatchString(lower) {
		return true
	}
	return r.contexts.IsImageConfirmation(message, roomID)
}

// ReceiveFeedback forwards a customer rating on the last reply to the
// learner.
func (r *Router) ReceiveFeedback(userID string, rating int) {
	if r.learner == nil || userID == "" {
		return
	}
	r.learner.ReceiveFeedback(userID, rating)
}

// RouterStats is the stats-endpoint view of the router.
type RouterStats struct {
	Quota QuotaSnapshot `json:"quota"`
}

// Stats reports current quota usage.
func (r *Router) Stats() RouterStats {
	return RouterStats{Quota: r.quota.Snapshot()}
}
