// Package learning builds per-customer profiles from conversation history
// and uses them for occasional fully-personalized replies. Learning is
// passive: every message and reply is ingested, feedback adjusts the
// feature weights, and a reply is only personalized when a past exchange
// matches the new message closely.
package learning

import (
	"regexp"
	"strings"

	"github.com/chevai/smartchat/internal/smartchat/ai"
)

// Mood is the coarse sentiment of one message.
type Mood string

const (
	MoodPositive Mood = "positive"
	MoodNegative Mood = "negative"
	MoodNeutral  Mood = "neutral"
)

// Register is the politeness level the customer writes in.
type Register string

const (
	RegisterFormal Register = "formal"
	RegisterCasual Register = "casual"
)

// MessageAnalysis is the per-message feature vector the learner stores.
type MessageAnalysis struct {
	Language ai.Language
	Mood     Mood
	Register Register
	// Topics are the significant words of the message, used for similarity
	// matching against past conversations.
	Topics []string
}

var (
	positiveWords = regexp.MustCompile(`(đẹp|thích|tuyệt|ok|ưng|xịn|yêu|great|love|nice|good|perfect)`)
	negativeWords = regexp.MustCompile(`(xấu|chán|tệ|không\s*thích|đắt|mắc|bad|ugly|expensive|hate)`)

	formalMarkers = regexp.MustCompile(`(dạ|ạ\b|quý\s*khách|xin\s*phép|kính)`)
	casualMarkers = regexp.MustCompile(`(ơi|nha|nè|hihi|haha|bro|ê\b)`)

	// stopWords are common words carrying no topical signal.
	stopWords = map[string]bool{
		"shop": true, "mình": true, "bạn": true, "không": true, "cho": true,
		"của": true, "với": true, "này": true, "được": true, "the": true,
		"and": true, "you": true, "have": true, "are": true,
	}
)

// Analyze extracts the learner's feature vector from one message.
func Analyze(message string) MessageAnalysis {
	lower := strings.ToLower(strings.TrimSpace(message))

	mood := MoodNeutral
	switch {
	case negativeWords.MatchString(lower):
		mood = MoodNegative
	case positiveWords.MatchString(lower):
		mood = MoodPositive
	}

	register := RegisterCasual
	if formalMarkers.MatchString(lower) && !casualMarkers.MatchString(lower) {
		register = RegisterFormal
	}

	return MessageAnalysis{
		Language: ai.DetectLanguage(message),
		Mood:     mood,
		Register: register,
		Topics:   topicWords(lower),
	}
}

// topicWords returns the lowercased words longer than two runes that are
// not stop words.
func topicWords(lower string) []string {
	var out []string
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,!?")
		if len([]rune(w)) <= 2 || stopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// sharedTopicRatio reports how much of b's topics also appear in a.
func sharedTopicRatio(a, b []string) float64 {
	if len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	shared := 0
	for _, w := range b {
		if set[w] {
			shared++
		}
	}
	return float64(shared) / float64(len(b))
}

// adaptRegister rewrites a stored casual reply into formal address when the
// customer writes formally. Word-boundary safe for the pronouns involved.
var (
	casualYou = regexp.MustCompile(`\bbạn\b`)
	casualWe  = regexp.MustCompile(`\bmình\b`)
)

func adaptRegister(reply string, register Register) string {
	if register != RegisterFormal {
		return reply
	}
	reply = casualYou.ReplaceAllString(reply, "quý khách")
	reply = casualWe.ReplaceAllString(reply, "chúng tôi")
	return reply
}
