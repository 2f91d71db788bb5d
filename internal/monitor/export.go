package monitor

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"keytrace-go/internal/models"
)

// ExportCSV writes suspicious events in the operational export format: one
// row per event, timestamps in ISO-8601.
func ExportCSV(w io.Writer, events []models.MonitoringEvent) error {
	cw := csv.NewWriter(w)

	header := []string{"Student ID", "Timestamp", "Risk Score", "Confidence", "Sample Size", "Authenticated"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, event := range events {
		row := []string{
			event.StudentID,
			event.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(event.RiskScore, 'f', 2, 64),
			strconv.FormatFloat(event.Confidence, 'f', 2, 64),
			strconv.Itoa(event.SampleSize),
			strconv.FormatBool(event.Authenticated),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
