package monitor

import (
	"strings"
	"sync"
	"testing"
	"time"

	"keytrace-go/internal/models"
)

func event(studentID string, confidence, risk float64, ts time.Time) models.MonitoringEvent {
	return models.MonitoringEvent{
		StudentID:     studentID,
		Confidence:    confidence,
		RiskScore:     risk,
		SampleSize:    120,
		Authenticated: confidence >= 60,
		Timestamp:     ts,
	}
}

func TestRecordFoldsIncrementalMean(t *testing.T) {
	a := NewAggregator(10 * time.Minute)
	now := time.Now()

	a.Record(event("s1", 80, 20, now))
	a.Record(event("s1", 60, 40, now.Add(time.Second)))

	sessions := a.Snapshot(now.Add(2 * time.Second))
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	s := sessions[0]
	if s.EventCount != 2 {
		t.Errorf("EventCount = %d, want 2", s.EventCount)
	}
	if s.AverageConfidence != 70 {
		t.Errorf("AverageConfidence = %.2f, want 70", s.AverageConfidence)
	}
	if s.AverageRisk != 30 {
		t.Errorf("AverageRisk = %.2f, want 30", s.AverageRisk)
	}
	if s.LatestEvent.Confidence != 60 {
		t.Errorf("LatestEvent.Confidence = %.2f, want the last recorded event", s.LatestEvent.Confidence)
	}
}

func TestRecordOrderInsensitiveForAverages(t *testing.T) {
	values := []float64{55, 90, 72, 61, 88}
	now := time.Now()

	forward := NewAggregator(time.Hour)
	reverse := NewAggregator(time.Hour)
	for i, v := range values {
		forward.Record(event("s1", v, v/2, now.Add(time.Duration(i)*time.Second)))
		reverse.Record(event("s1", values[len(values)-1-i], values[len(values)-1-i]/2, now.Add(time.Duration(i)*time.Second)))
	}

	f := forward.Snapshot(now)[0]
	r := reverse.Snapshot(now)[0]
	if diff := f.AverageConfidence - r.AverageConfidence; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("averages diverge by order: %.10f vs %.10f", f.AverageConfidence, r.AverageConfidence)
	}
}

func TestSnapshotEvictsStaleSessions(t *testing.T) {
	a := NewAggregator(10 * time.Minute)
	now := time.Now()

	a.Record(event("stale", 70, 30, now.Add(-11*time.Minute)))
	a.Record(event("fresh", 70, 30, now.Add(-1*time.Minute)))

	sessions := a.Snapshot(now)
	if len(sessions) != 1 || sessions[0].StudentID != "fresh" {
		t.Fatalf("Snapshot = %+v, want only the fresh session", sessions)
	}

	// Eviction is permanent, not just filtered from one snapshot.
	if a.Len() != 1 {
		t.Errorf("Len after eviction = %d, want 1", a.Len())
	}
}

func TestSnapshotSortsByRecency(t *testing.T) {
	a := NewAggregator(time.Hour)
	now := time.Now()

	a.Record(event("old", 70, 30, now.Add(-30*time.Minute)))
	a.Record(event("newest", 70, 30, now.Add(-time.Minute)))
	a.Record(event("middle", 70, 30, now.Add(-10*time.Minute)))

	sessions := a.Snapshot(now)
	order := make([]string, len(sessions))
	for i, s := range sessions {
		order[i] = s.StudentID
	}
	want := []string{"newest", "middle", "old"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRecordConcurrentStudents(t *testing.T) {
	a := NewAggregator(time.Hour)
	now := time.Now()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(studentID string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				a.Record(event(studentID, 70, 30, now))
			}
		}(id)
	}
	wg.Wait()

	sessions := a.Snapshot(now)
	if len(sessions) != 4 {
		t.Fatalf("sessions = %d, want 4", len(sessions))
	}
	for _, s := range sessions {
		if s.EventCount != 50 {
			t.Errorf("student %s EventCount = %d, want 50", s.StudentID, s.EventCount)
		}
		if s.AverageConfidence != 70 {
			t.Errorf("student %s AverageConfidence = %.2f, want 70", s.StudentID, s.AverageConfidence)
		}
	}
}

func TestExportCSVFormat(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	events := []models.MonitoringEvent{
		{StudentID: "s1", Confidence: 42.5, RiskScore: 78.4, SampleSize: 97, Authenticated: false, Timestamp: ts},
	}

	var sb strings.Builder
	if err := ExportCSV(&sb, events); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header plus one row", len(lines))
	}
	if lines[0] != "Student ID,Timestamp,Risk Score,Confidence,Sample Size,Authenticated" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "s1,2026-03-14T09:26:53Z,78.40,42.50,97,false" {
		t.Errorf("row = %q", lines[1])
	}
}

func TestExportCSVEmptyStillWritesHeader(t *testing.T) {
	var sb strings.Builder
	if err := ExportCSV(&sb, nil); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if got := strings.TrimRight(sb.String(), "\n"); got != "Student ID,Timestamp,Risk Score,Confidence,Sample Size,Authenticated" {
		t.Errorf("empty export = %q, want header only", got)
	}
}
