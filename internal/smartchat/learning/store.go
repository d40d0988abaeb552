package learning

import (
	"context"
	"errors"
	"time"
)

// ErrProfileNotFound marks a lookup for a user the learner has never seen.
var ErrProfileNotFound = errors.New("learning profile not found")

// maxConversations caps the stored exchanges per user; the oldest is
// dropped first.
const maxConversations = 50

// Conversation is one remembered exchange: the customer message, the reply
// the assistant gave, and the analysis at the time. Rating is 0 until the
// customer rates the exchange, then 1 to 5.
type Conversation struct {
	Message  string          `json:"message"`
	Reply    string          `json:"reply"`
	Provider string          `json:"provider"`
	Analysis MessageAnalysis `json:"analysis"`
	Rating   int             `json:"rating,omitempty"`
	At       time.Time       `json:"at"`
}

// Preferences aggregate the customer's observed style.
type Preferences struct {
	Language      string `json:"language"`
	Register      string `json:"register"`
	FormalCount   int    `json:"formalCount"`
	CasualCount   int    `json:"casualCount"`
	PositiveCount int    `json:"positiveCount"`
	NegativeCount int    `json:"negativeCount"`
}

// Statistics are exposed on the learning stats endpoint.
type Statistics struct {
	Messages      int     `json:"messages"`
	Responses     int     `json:"responses"`
	FeedbackCount int     `json:"feedbackCount"`
	AvgRating     float64 `json:"avgRating"`
	LearningScore float64 `json:"learningScore"`
	Personalized  int     `json:"personalized"`
}

// Profile is everything the learner knows about one customer.
type Profile struct {
	UserID        string         `json:"userId"`
	Preferences   Preferences    `json:"preferences"`
	Conversations []Conversation `json:"conversations"`
	Statistics    Statistics     `json:"statistics"`
	Scorer        *Scorer        `json:"scorer"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// NewProfile initializes a profile with a fresh scorer.
func NewProfile(userID string) *Profile {
	return &Profile{UserID: userID, Scorer: NewScorer()}
}

// remember appends an exchange, evicting the oldest past the cap.
func (p *Profile) remember(c Conversation) {
	p.Conversations = append(p.Conversations, c)
	if len(p.Conversations) > maxConversations {
		p.Conversations = p.Conversations[len(p.Conversations)-maxConversations:]
	}
}

// Store persists learning profiles.
type Store interface {
	// Get loads a profile, returning ErrProfileNotFound for unknown users.
	Get(ctx context.Context, userID string) (*Profile, error)
	// Put saves a profile, overwriting any previous version.
	Put(ctx context.Context, profile *Profile) error
}
