package notify

import (
	"encoding/json"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
	"github.com/sentryhub/capturectl/internal/notify/cap"
)

// severityToCAP maps the internal AnalysisEvent severity scale onto the
// CAP Info urgency/severity/certainty triplet. There is no canonical
// inverse of spec §4.5's notification-kind mapping, so this picks the
// most conservative CAP levels that round-trip back through
// cap.SeverityForNotification to the same notification kind.
func severityToCAP(s domain.Severity) (cap.Urgency, cap.InfoSeverity, cap.Certainty) {
	switch s {
	case domain.SeverityCritical:
		return cap.UrgencyImmediate, cap.SeverityExtreme, cap.CertaintyObserved
	case domain.SeverityHigh:
		return cap.UrgencyExpected, cap.SeveritySevere, cap.CertaintyLikely
	case domain.SeverityMedium:
		return cap.UrgencyExpected, cap.SeverityModerate, cap.CertaintyLikely
	case domain.SeverityLow:
		return cap.UrgencyFuture, cap.SeverityMinor, cap.CertaintyPossible
	default:
		return cap.UrgencyUnknown, cap.SeverityUnknown, cap.CertaintyUnknown
	}
}

// BuildEventAlert constructs a CAP alert for event, sent by sender, with
// a single info block describing the event. Callers that want multiple
// info blocks or area/resource detail should use the cap package's
// Build/Validate/Serialize directly instead.
func BuildEventAlert(event *domain.AnalysisEvent, sender string, sent time.Time) (*cap.Alert, error) {
	urgency, severity, certainty := severityToCAP(event.Severity)
	alert := cap.Build(cap.BuildParams{
		Identifier:  event.ID,
		Sender:      sender,
		Sent:        sent,
		Status:      cap.StatusActual,
		MsgType:     cap.MsgTypeAlert,
		Scope:       cap.ScopePublic,
		Event:       event.EventType,
		Category:    "Safety",
		Urgency:     urgency,
		Severity:    severity,
		Certainty:   certainty,
		Headline:    event.EventType,
		Description: event.Description,
	})
	if err := cap.Validate(alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// AttachCAPToEvent serializes alert and merges it into event's
// metadata_json under "cap_xml" and "cap_identifier", per spec §4.5.
// Any attachmentURL is appended to an "attachments" array alongside it.
func AttachCAPToEvent(event *domain.AnalysisEvent, alert *cap.Alert, attachmentURL string) error {
	const op = "notify.AttachCAPToEvent"

	xmlBytes, err := cap.Serialize(alert)
	if err != nil {
		return err
	}

	metadata := map[string]any{}
	if event.MetadataJSON != "" {
		if err := json.Unmarshal([]byte(event.MetadataJSON), &metadata); err != nil {
			return apperrors.Validation(op, "existing metadata_json is malformed")
		}
	}

	metadata["cap_xml"] = string(xmlBytes)
	metadata["cap_identifier"] = alert.Identifier
	if attachmentURL != "" {
		attachments, _ := metadata["attachments"].([]any)
		metadata["attachments"] = append(attachments, attachmentURL)
	}

	encoded, err := json.Marshal(metadata)
	if err != nil {
		return apperrors.Validation(op, "failed to encode metadata_json")
	}
	event.MetadataJSON = string(encoded)
	return nil
}
