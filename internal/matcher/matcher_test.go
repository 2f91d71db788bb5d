package matcher

import (
	"errors"
	"testing"

	"keytrace-go/internal/enrollment"
	"keytrace-go/internal/models"
)

// typist deterministically generates keystroke events with a stable timing
// signature, so samples from the same typist extract near-identical features.
type typist struct {
	userID    string
	baseDwell float64
	baseGap   float64
}

// keyCycle is long enough that every consecutive pair is distinct, giving a
// digraph vocabulary well past the matcher's coverage cap.
const keyCycle = "abcdefghijklmnopqrstuvwxy"

func (t typist) events(n int, startMs float64) []models.KeystrokeEvent {
	events := make([]models.KeystrokeEvent, n)
	ts := startMs
	for i := range events {
		key := string(keyCycle[i%len(keyCycle)])
		flight := 0.0
		if i > 0 {
			// Per-pair offset keeps each digraph latency constant across
			// repetitions and across samples.
			flight = t.baseGap + float64(i%len(keyCycle)%7)*5
			ts += flight
		}
		events[i] = models.KeystrokeEvent{
			UserID:     t.userID,
			SessionID:  "s-" + t.userID,
			Timestamp:  ts,
			Key:        key,
			KeyCode:    int(key[0]),
			DwellTime:  t.baseDwell + float64(i%5)*2,
			FlightTime: flight,
		}
	}
	return events
}

type memorySource struct {
	templates []models.EnrollmentTemplate
	err       error
}

func (m *memorySource) All() ([]models.EnrollmentTemplate, error) {
	return m.templates, m.err
}

func (m *memorySource) Get(userID string) (*models.EnrollmentTemplate, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.templates {
		if m.templates[i].UserID == userID {
			return &m.templates[i], nil
		}
	}
	return nil, nil
}

func enroll(t *testing.T, src *memorySource, ty typist, n int) {
	t.Helper()
	tpl, err := enrollment.BuildTemplate(ty.userID, ty.events(n, 0), 200)
	if err != nil {
		t.Fatalf("enrolling %s: %v", ty.userID, err)
	}
	src.templates = append(src.templates, *tpl)
}

var (
	alice = typist{userID: "alice", baseDwell: 85, baseGap: 120}
	bob   = typist{userID: "bob", baseDwell: 160, baseGap: 260}
)

func TestIdentifyRanksEnrolledOwnerFirst(t *testing.T) {
	src := &memorySource{}
	enroll(t, src, alice, 320)
	enroll(t, src, bob, 320)

	m := New(src, Config{MinSampleKeystrokes: 100, HighConfidence: 80, MediumConfidence: 60})

	result, err := m.Identify(alice.events(120, 500000), 3)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}

	if len(result.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(result.Candidates))
	}
	if result.Candidates[0].UserID != "alice" {
		t.Fatalf("top candidate = %s, want alice", result.Candidates[0].UserID)
	}
	if result.Candidates[0].Rank != 1 || result.Candidates[1].Rank != 2 {
		t.Errorf("ranks = %d,%d, want 1,2", result.Candidates[0].Rank, result.Candidates[1].Rank)
	}
	if result.Candidates[0].Confidence <= result.Candidates[1].Confidence {
		t.Errorf("alice confidence %.1f not above bob %.1f",
			result.Candidates[0].Confidence, result.Candidates[1].Confidence)
	}
	if result.ConfidenceLevel == models.ConfidenceLow {
		t.Errorf("self-match tier = %s, want at least medium (top confidence %.1f)",
			result.ConfidenceLevel, result.Candidates[0].Confidence)
	}
}

func TestIdentifyTierFollowsTopCandidateOnly(t *testing.T) {
	src := &memorySource{}
	enroll(t, src, alice, 320)
	enroll(t, src, bob, 320)

	m := New(src, Config{})

	// An alice sample scores high against alice and low against bob; the
	// result tier must come from the winner alone, not an average.
	result, err := m.Identify(alice.events(150, 0), 3)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if got, want := result.ConfidenceLevel, m.Tier(result.Candidates[0].Confidence); got != want {
		t.Errorf("result tier = %s, want %s from top candidate", got, want)
	}
}

func TestIdentifyTruncatesToTopK(t *testing.T) {
	src := &memorySource{}
	enroll(t, src, alice, 320)
	enroll(t, src, bob, 320)
	enroll(t, src, typist{userID: "carol", baseDwell: 60, baseGap: 90}, 320)

	m := New(src, Config{})

	result, err := m.Identify(alice.events(120, 0), 2)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if len(result.Candidates) != 2 {
		t.Errorf("candidates = %d, want topK=2", len(result.Candidates))
	}
}

func TestIdentifyBreaksConfidenceTiesByUserID(t *testing.T) {
	// Templates without feature vectors score zero against any sample, so
	// every candidate ties and only the user id ordering separates them.
	src := &memorySource{templates: []models.EnrollmentTemplate{
		{UserID: "zed"},
		{UserID: "amy"},
	}}
	m := New(src, Config{})

	result, err := m.Identify(alice.events(150, 0), 3)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}

	if len(result.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(result.Candidates))
	}
	if result.Candidates[0].Confidence != result.Candidates[1].Confidence {
		t.Fatalf("confidences %.1f and %.1f are not tied",
			result.Candidates[0].Confidence, result.Candidates[1].Confidence)
	}
	if result.Candidates[0].UserID != "amy" || result.Candidates[1].UserID != "zed" {
		t.Errorf("tie order = %s,%s, want amy,zed",
			result.Candidates[0].UserID, result.Candidates[1].UserID)
	}
	if result.Candidates[0].Rank != 1 || result.Candidates[1].Rank != 2 {
		t.Errorf("ranks = %d,%d, want 1,2", result.Candidates[0].Rank, result.Candidates[1].Rank)
	}
}

func TestIdentifyNoTemplatesIsAnError(t *testing.T) {
	m := New(&memorySource{}, Config{})

	_, err := m.Identify(alice.events(150, 0), 3)
	if !errors.Is(err, ErrNoTemplates) {
		t.Fatalf("Identify with empty store = %v, want ErrNoTemplates", err)
	}
}

func TestIdentifyRejectsShortSample(t *testing.T) {
	src := &memorySource{}
	enroll(t, src, alice, 320)

	m := New(src, Config{MinSampleKeystrokes: 100})

	if _, err := m.Identify(alice.events(99, 0), 3); !errors.Is(err, ErrInsufficientSample) {
		t.Fatalf("Identify with 99 events = %v, want ErrInsufficientSample", err)
	}
}

func TestVerifyAcceptsOwnerRejectsImpostor(t *testing.T) {
	src := &memorySource{}
	enroll(t, src, alice, 320)

	m := New(src, Config{})

	own, err := m.Verify("alice", alice.events(150, 700000))
	if err != nil {
		t.Fatalf("Verify owner failed: %v", err)
	}
	if !own.Authenticated {
		t.Errorf("owner sample not authenticated (confidence %.1f)", own.Confidence)
	}

	impostor, err := m.Verify("alice", bob.events(150, 0))
	if err != nil {
		t.Fatalf("Verify impostor failed: %v", err)
	}
	if impostor.Authenticated {
		t.Errorf("impostor sample authenticated (confidence %.1f)", impostor.Confidence)
	}
	if impostor.Confidence >= own.Confidence {
		t.Errorf("impostor confidence %.1f not below owner %.1f", impostor.Confidence, own.Confidence)
	}
}

func TestVerifyUnknownUser(t *testing.T) {
	src := &memorySource{}
	enroll(t, src, alice, 320)

	m := New(src, Config{})

	if _, err := m.Verify("mallory", alice.events(150, 0)); !errors.Is(err, ErrUserNotEnrolled) {
		t.Fatalf("Verify unknown user = %v, want ErrUserNotEnrolled", err)
	}
}

func TestTierThresholds(t *testing.T) {
	m := New(&memorySource{}, Config{HighConfidence: 80, MediumConfidence: 60})

	cases := []struct {
		confidence float64
		want       models.ConfidenceLevel
	}{
		{95, models.ConfidenceHigh},
		{80, models.ConfidenceHigh},
		{79.9, models.ConfidenceMedium},
		{60, models.ConfidenceMedium},
		{59.9, models.ConfidenceLow},
		{0, models.ConfidenceLow},
	}
	for _, tc := range cases {
		if got := m.Tier(tc.confidence); got != tc.want {
			t.Errorf("Tier(%.1f) = %s, want %s", tc.confidence, got, tc.want)
		}
	}
}
