package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryhub/capturectl/internal/domain"
)

func TestBuildEventAlert_ProducesValidAlert(t *testing.T) {
	event := &domain.AnalysisEvent{
		ID:          "evt-1",
		EventType:   "motion",
		Severity:    domain.SeverityCritical,
		Description: "Motion detected at the front gate.",
	}

	alert, err := BuildEventAlert(event, "captures@example.com", time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "evt-1", alert.Identifier)
	assert.Equal(t, "captures@example.com", alert.Sender)
	require.Len(t, alert.Info, 1)
	assert.Equal(t, "motion", alert.Info[0].Event)
}

func TestAttachCAPToEvent_MergesIntoExistingMetadata(t *testing.T) {
	event := &domain.AnalysisEvent{
		ID:           "evt-1",
		EventType:    "motion",
		Severity:     domain.SeverityHigh,
		Description:  "Motion detected.",
		MetadataJSON: `{"processor":"pixel_diff"}`,
	}

	alert, err := BuildEventAlert(event, "captures@example.com", time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	err = AttachCAPToEvent(event, alert, "https://artifacts.example.com/evt-1.jpg")
	require.NoError(t, err)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal([]byte(event.MetadataJSON), &metadata))

	assert.Equal(t, "pixel_diff", metadata["processor"])
	assert.Equal(t, "evt-1", metadata["cap_identifier"])
	assert.Contains(t, metadata["cap_xml"], "<alert")
	assert.Equal(t, []any{"https://artifacts.example.com/evt-1.jpg"}, metadata["attachments"])
}

func TestAttachCAPToEvent_RejectsMalformedExistingMetadata(t *testing.T) {
	event := &domain.AnalysisEvent{
		ID:           "evt-1",
		EventType:    "motion",
		Severity:     domain.SeverityLow,
		Description:  "Motion detected.",
		MetadataJSON: "not-json",
	}

	alert, err := BuildEventAlert(event, "captures@example.com", time.Now().UTC())
	require.NoError(t, err)

	err = AttachCAPToEvent(event, alert, "")
	assert.Error(t, err)
}
