package ai

// Provider labels reported in Response.Provider. The transport layer shows
// them next to the assistant's name so staff can tell which path produced a
// reply.
const (
	ProviderCore         = "Core AI"
	ProviderGemini       = "Gemini AI"
	ProviderCoreFallback = "Core AI (Gemini fallback)"
	ProviderPersonalized = "Personalized AI"
	ProviderError        = "Error Fallback"
)

// Response is the normalized result of one AI turn.
type Response struct {
	Message string `json:"message"`
	// Image is an optional product image URL attached to the reply.
	Image string `json:"image,omitempty"`
	// Provider names the responder that produced the reply.
	Provider string `json:"aiProvider"`
	// Reason is a short human-readable routing justification. Observability
	// only; nothing downstream branches on it.
	Reason string `json:"reason,omitempty"`
}
