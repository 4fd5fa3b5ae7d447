package cap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// BuildParams is the minimal set of fields Build needs to construct a
// valid Alert around a single Info block; callers add areas, resources,
// and parameters on the returned Alert before serializing if needed.
type BuildParams struct {
	Identifier  string
	Sender      string
	Sent        time.Time
	Status      Status
	MsgType     MsgType
	Scope       Scope
	Event       string
	Category    string
	Urgency     Urgency
	Severity    InfoSeverity
	Certainty   Certainty
	Headline    string
	Description string
}

// Build constructs a single-info Alert from params. The result still
// needs Validate before Serialize; Build does not itself validate so
// callers can add optional fields (area, parameter, resource) first.
func Build(p BuildParams) *Alert {
	return &Alert{
		Identifier: p.Identifier,
		Sender:     p.Sender,
		Sent:       p.Sent.UTC().Format(time.RFC3339),
		Status:     p.Status,
		MsgType:    p.MsgType,
		Scope:      p.Scope,
		Info: []Info{{
			Category:    []string{p.Category},
			Event:       p.Event,
			Urgency:     p.Urgency,
			Severity:    p.Severity,
			Certainty:   p.Certainty,
			Headline:    p.Headline,
			Description: p.Description,
		}},
	}
}

// Serialize validates a then marshals it to a CAP 1.2 XML document with
// an XML declaration.
func Serialize(a *Alert) ([]byte, error) {
	const op = "cap.Serialize"

	if err := Validate(a); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(a); err != nil {
		return nil, apperrors.Validation(op, fmt.Sprintf("failed to encode alert: %v", err))
	}
	return buf.Bytes(), nil
}

// Parse unmarshals a CAP 1.2 XML document and validates the result
// before returning it, so a caller never holds a structurally invalid
// Alert.
func Parse(data []byte) (*Alert, error) {
	const op = "cap.Parse"

	var a Alert
	if err := xml.Unmarshal(data, &a); err != nil {
		return nil, apperrors.Validation(op, fmt.Sprintf("failed to decode alert: %v", err))
	}
	if err := Validate(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SeverityForNotification maps a CAP Info's urgency/severity to the
// internal notification kind per spec §4.5's alert→notification rule:
// extreme or immediate urgency/severity escalates to Error, severe to
// Warning, anything else to Info.
func SeverityForNotification(urgency Urgency, severity InfoSeverity) string {
	if severity == SeverityExtreme || urgency == UrgencyImmediate {
		return "Error"
	}
	if severity == SeveritySevere {
		return "Warning"
	}
	return "Info"
}
