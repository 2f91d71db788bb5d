package matcher

import (
	"encoding/json"
	"math"
	"sort"

	"keytrace-go/internal/metrics"
	"keytrace-go/internal/models"
)

// Component weights of the similarity score. Flight timing discriminates
// better than dwell timing, and digraph latencies better than either.
const (
	weightDwell    = 0.20
	weightFlight   = 0.25
	weightSpeed    = 0.10
	weightRhythm   = 0.15
	weightDigraphs = 0.30

	// digraphScale is the latency difference (ms) at which a shared digraph
	// contributes ~37% similarity.
	digraphScale = 50.0
)

// Config carries the matching thresholds, read once from the shared
// configuration table.
type Config struct {
	MinSampleKeystrokes int
	HighConfidence      float64
	MediumConfidence    float64
}

// Matcher scores keystroke samples against enrolled templates. Verification
// (1:1) and identification (1:N) are two call shapes over the same scoring
// primitive.
type Matcher struct {
	store TemplateSource
	cfg   Config
}

// TemplateSource provides enrolled templates for matching.
type TemplateSource interface {
	All() ([]models.EnrollmentTemplate, error)
	Get(userID string) (*models.EnrollmentTemplate, error)
}

// VerificationResult is the outcome of one 1:1 check.
type VerificationResult struct {
	UserID        string                 `json:"userId"`
	Authenticated bool                   `json:"authenticated"`
	Confidence    float64                `json:"confidence"`
	Level         models.ConfidenceLevel `json:"confidence_level"`
}

// New creates a matcher over a template source.
func New(store TemplateSource, cfg Config) *Matcher {
	if cfg.MinSampleKeystrokes <= 0 {
		cfg.MinSampleKeystrokes = 100
	}
	if cfg.HighConfidence <= 0 {
		cfg.HighConfidence = 80
	}
	if cfg.MediumConfidence <= 0 {
		cfg.MediumConfidence = 60
	}
	return &Matcher{store: store, cfg: cfg}
}

// Tier discretizes a confidence score using the shared thresholds.
func (m *Matcher) Tier(confidence float64) models.ConfidenceLevel {
	switch {
	case confidence >= m.cfg.HighConfidence:
		return models.ConfidenceHigh
	case confidence >= m.cfg.MediumConfidence:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// Identify compares a sample against every enrolled template and returns up
// to topK candidates ranked by descending confidence, with equal confidences
// ordered by user id so the ranking is deterministic. Confidences are
// computed independently per template and do not sum to 100. The result tier
// is driven by the top candidate alone.
func (m *Matcher) Identify(sample []models.KeystrokeEvent, topK int) (*models.IdentificationResult, error) {
	if len(sample) < m.cfg.MinSampleKeystrokes {
		return nil, ErrInsufficientSample
	}
	if topK <= 0 {
		topK = 3
	}

	templates, err := m.store.All()
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, ErrNoTemplates
	}

	features := metrics.Extract(sample)

	candidates := make([]models.IdentificationCandidate, 0, len(templates))
	for _, tpl := range templates {
		candidates = append(candidates, models.IdentificationCandidate{
			UserID:     tpl.UserID,
			Confidence: m.score(features, &tpl),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].UserID < candidates[j].UserID
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}

	return &models.IdentificationResult{
		Candidates:      candidates,
		ConfidenceLevel: m.Tier(candidates[0].Confidence),
	}, nil
}

// Verify checks a sample against one claimed identity using the same scoring
// primitive as Identify. Authenticated means at least medium confidence.
func (m *Matcher) Verify(userID string, sample []models.KeystrokeEvent) (*VerificationResult, error) {
	if len(sample) < m.cfg.MinSampleKeystrokes {
		return nil, ErrInsufficientSample
	}

	tpl, err := m.store.Get(userID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, ErrUserNotEnrolled
	}

	features := metrics.Extract(sample)
	confidence := m.score(features, tpl)

	return &VerificationResult{
		UserID:        userID,
		Authenticated: confidence >= m.cfg.MediumConfidence,
		Confidence:    confidence,
		Level:         m.Tier(confidence),
	}, nil
}

// score is the matching primitive: weighted similarity between a sample
// feature set and one stored template, as a confidence in [0,100].
func (m *Matcher) score(sample metrics.FeatureSet, tpl *models.EnrollmentTemplate) float64 {
	var digraphs map[string]float64
	if len(tpl.Digraphs) > 0 {
		// A template with an undecodable digraph map still matches on the
		// scalar features.
		_ = json.Unmarshal(tpl.Digraphs, &digraphs)
	}
	stored := metrics.FeatureSetFromVector(tpl.Features, digraphs, tpl.TotalKeystrokes)

	score := weightDwell*gaussianSimilarity(sample.MeanDwell, stored.MeanDwell, stored.StdDwell) +
		weightFlight*gaussianSimilarity(sample.MeanFlight, stored.MeanFlight, stored.StdFlight) +
		weightSpeed*ratioSimilarity(sample.TypingSpeed, stored.TypingSpeed) +
		weightRhythm*ratioSimilarity(sample.RhythmVariability, stored.RhythmVariability) +
		weightDigraphs*digraphSimilarity(sample.Digraphs, stored.Digraphs)

	confidence := score * 100
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return confidence
}

// gaussianSimilarity scores how close a sample value sits to the template
// distribution. The deviation floor keeps very consistent typists from
// rejecting their own samples over a few milliseconds.
func gaussianSimilarity(value, mean, std float64) float64 {
	if mean <= 0 {
		return 0
	}
	floor := mean * 0.15
	if std < floor {
		std = floor
	}
	z := (value - mean) / std
	return math.Exp(-0.5 * z * z)
}

// ratioSimilarity compares two magnitudes scale-free.
func ratioSimilarity(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > b {
		a, b = b, a
	}
	return a / b
}

// digraphSimilarity scores the latency agreement over key pairs present in
// both maps. Agreement over a larger shared vocabulary counts for more, up
// to 20 shared pairs.
func digraphSimilarity(sample, stored map[string]float64) float64 {
	if len(sample) == 0 || len(stored) == 0 {
		return 0
	}

	var sum float64
	shared := 0
	for pair, sampleLatency := range sample {
		storedLatency, ok := stored[pair]
		if !ok {
			continue
		}
		sum += math.Exp(-math.Abs(sampleLatency-storedLatency) / digraphScale)
		shared++
	}
	if shared == 0 {
		return 0
	}

	agreement := sum / float64(shared)
	coverage := float64(shared) / 20.0
	if coverage > 1 {
		coverage = 1
	}
	return agreement * coverage
}
