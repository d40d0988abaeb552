package learning

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/chevai/smartchat/internal/smartchat/ai"
)

// Thresholds for serving a personalized reply. Both the topical match and
// the trained confidence have to clear their bar.
const (
	minSharedTopicRatio = 0.6
	minTopicWords       = 3
	minConfidence       = 0.6
	minHistory          = 3
)

// Service is the learning layer behind the router's Personalizer port.
// Read-modify-write sequences on a profile are serialized by one mutex;
// profile updates are rare enough that finer locking buys nothing.
type Service struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
}

// NewService builds a learner over the given profile store.
func NewService(store Store) *Service {
	return NewServiceAt(store, time.Now)
}

// NewServiceAt builds a learner with an injected clock for tests.
func NewServiceAt(store Store, now func() time.Time) *Service {
	return &Service{store: store, now: now}
}

// loadOrCreate fetches the user's profile, starting a fresh one for
// first-time users.
func (s *Service) loadOrCreate(ctx context.Context, userID string) (*Profile, error) {
	profile, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return NewProfile(userID), nil
	}
	if err != nil {
		return nil, err
	}
	if profile.Scorer == nil {
		profile.Scorer = NewScorer()
	}
	return profile, nil
}

func (s *Service) save(ctx context.Context, profile *Profile) {
	profile.UpdatedAt = s.now()
	if err := s.store.Put(ctx, profile); err != nil {
		slog.Warn("learning profile save failed", "user", profile.UserID, "err", err)
	}
}

// LearnFromMessage ingests one customer message into the profile's style
// counters.
func (s *Service) LearnFromMessage(userID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	profile, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		slog.Warn("learning profile load failed", "user", userID, "err", err)
		return
	}

	analysis := Analyze(message)
	profile.Statistics.Messages++
	profile.Statistics.LearningScore += ai.AnalyzeIntent(message).Confidence
	profile.Preferences.Language = string(analysis.Language)
	switch analysis.Register {
	case RegisterFormal:
		profile.Preferences.FormalCount++
	case RegisterCasual:
		profile.Preferences.CasualCount++
	}
	switch analysis.Mood {
	case MoodPositive:
		profile.Preferences.PositiveCount++
	case MoodNegative:
		profile.Preferences.NegativeCount++
	}
	if profile.Preferences.FormalCount > profile.Preferences.CasualCount {
		profile.Preferences.Register = string(RegisterFormal)
	} else {
		profile.Preferences.Register = string(RegisterCasual)
	}

	s.save(ctx, profile)
}

// LearnFromResponse remembers the exchange so it can be replayed later for
// a similar question.
func (s *Service) LearnFromResponse(userID, message string, resp ai.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	profile, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		slog.Warn("learning profile load failed", "user", userID, "err", err)
		return
	}

	profile.Statistics.Responses++
	profile.remember(Conversation{
		Message:  message,
		Reply:    resp.Message,
		Provider: resp.Provider,
		Analysis: Analyze(message),
		At:       s.now(),
	})
	s.save(ctx, profile)
}

// PersonalizedResponse replays a past reply when the new message closely
// matches a remembered exchange and the trained confidence clears the bar.
// The reply is re-registered to the customer's politeness level.
func (s *Service) PersonalizedResponse(userID, message string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	profile, err := s.store.Get(ctx, userID)
	if err != nil {
		return "", false
	}
	if profile.Statistics.Messages < minHistory || profile.Scorer == nil {
		return "", false
	}

	analysis := Analyze(message)
	if len(analysis.Topics) < minTopicWords {
		return "", false
	}

	var (
		best      *Conversation
		bestRatio float64
	)
	// Only exchanges the customer rated well are worth replaying.
	for i := range profile.Conversations {
		c := &profile.Conversations[i]
		if c.Reply == "" || c.Rating < 4 {
			continue
		}
		ratio := sharedTopicRatio(c.Analysis.Topics, analysis.Topics)
		if ratio > bestRatio {
			best, bestRatio = c, ratio
		}
	}
	if best == nil || bestRatio < minSharedTopicRatio {
		return "", false
	}

	confidence := profile.Scorer.Predict(features(analysis, bestRatio))
	if confidence < minConfidence {
		return "", false
	}

	register := Register(profile.Preferences.Register)
	reply := adaptRegister(best.Reply, register)

	profile.Statistics.Personalized++
	s.save(ctx, profile)

	slog.Debug("personalized reply served",
		"user", userID, "overlap", bestRatio, "confidence", confidence)
	return reply, true
}

// ReceiveFeedback attaches a 1 to 5 star rating to the most recent exchange,
// adjusts the learning score and trains the scorer toward the rating.
func (s *Service) ReceiveFeedback(userID string, rating int) {
	if rating < 1 || rating > 5 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	profile, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		slog.Warn("learning profile load failed", "user", userID, "err", err)
		return
	}

	stats := &profile.Statistics
	stats.FeedbackCount++
	switch {
	case rating >= 4:
		stats.LearningScore += 2
	case rating <= 2:
		stats.LearningScore--
		if stats.LearningScore < 0 {
			stats.LearningScore = 0
		}
	}

	if n := len(profile.Conversations); n > 0 {
		last := &profile.Conversations[n-1]
		last.Rating = rating
		profile.Scorer.Train(features(last.Analysis, 1), float64(rating-1)/4)
	}
	stats.AvgRating = avgRating(profile.Conversations)

	s.save(ctx, profile)
}

// avgRating is the mean over the rated exchanges still in the window.
func avgRating(conversations []Conversation) float64 {
	var sum, n float64
	for i := range conversations {
		if conversations[i].Rating > 0 {
			sum += float64(conversations[i].Rating)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

// Stats reports the profile's statistics for the stats endpoint. Unknown
// users get zero statistics rather than an error.
func (s *Service) Stats(ctx context.Context, userID string) (Statistics, error) {
	profile, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return Statistics{}, nil
	}
	if err != nil {
		return Statistics{}, err
	}
	return profile.Statistics, nil
}
