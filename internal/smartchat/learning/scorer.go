package learning

// learningRate controls how far one feedback sample moves the weights.
const learningRate = 0.1

// Scorer is a tiny linear model over named features. Weights live inside
// the profile so each customer trains their own.
type Scorer struct {
	Weights map[string]float64 `json:"weights"`
}

// NewScorer starts every known feature at an optimistic prior, so a strong
// topical match is served until feedback says otherwise.
func NewScorer() *Scorer {
	return &Scorer{Weights: map[string]float64{
		"mood_positive":   0.7,
		"mood_negative":   0.7,
		"register_formal": 0.7,
		"topic_overlap":   0.7,
	}}
}

// features maps one analysis plus a topic-overlap ratio to feature values
// in [0, 1].
func features(a MessageAnalysis, overlap float64) map[string]float64 {
	f := map[string]float64{"topic_overlap": overlap}
	if a.Mood == MoodPositive {
		f["mood_positive"] = 1
	}
	if a.Mood == MoodNegative {
		f["mood_negative"] = 1
	}
	if a.Register == RegisterFormal {
		f["register_formal"] = 1
	}
	return f
}

// Predict scores a candidate personalized reply. The score is the
// weight-averaged feature activation, in [0, 1].
func (s *Scorer) Predict(f map[string]float64) float64 {
	if len(f) == 0 {
		return 0
	}
	var sum, total float64
	for name, value := range f {
		w, ok := s.Weights[name]
		if !ok {
			w = 0.5
		}
		sum += w * value
		total += value
	}
	if total == 0 {
		return 0
	}
	return clamp01(sum / total)
}

// Train nudges the weights of the active features toward target.
func (s *Scorer) Train(f map[string]float64, target float64) {
	if s.Weights == nil {
		s.Weights = NewScorer().Weights
	}
	for name, value := range f {
		if value == 0 {
			continue
		}
		w, ok := s.Weights[name]
		if !ok {
			w = 0.5
		}
		s.Weights[name] = clamp01(w + learningRate*(target-w)*value)
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
