package cap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

var languageRe = regexp.MustCompile(`^[a-zA-Z]{2}(-[a-zA-Z]{2})?$`)

// Validate enforces the structural contract spec §4.5 names: mandatory
// fields, area shape, time ordering, references format, and language
// codes. It is run both before serialization and after deserialization
// so a malformed Alert never crosses the XML boundary undetected.
func Validate(a *Alert) error {
	const op = "cap.Validate"

	if strings.TrimSpace(a.Identifier) == "" {
		return apperrors.Validation(op, "identifier is required")
	}
	if strings.TrimSpace(a.Sender) == "" {
		return apperrors.Validation(op, "sender is required")
	}
	if _, err := time.Parse(time.RFC3339, a.Sent); err != nil {
		return apperrors.Validation(op, "sent must be RFC 3339")
	}
	switch a.Status {
	case StatusActual, StatusExercise, StatusSystem, StatusTest, StatusDraft:
	default:
		return apperrors.Validation(op, "status is invalid")
	}
	switch a.MsgType {
	case MsgTypeAlert, MsgTypeUpdate, MsgTypeCancel, MsgTypeAck, MsgTypeError:
	default:
		return apperrors.Validation(op, "msgType is invalid")
	}
	switch a.Scope {
	case ScopePublic, ScopeRestricted, ScopePrivate:
	default:
		return apperrors.Validation(op, "scope is invalid")
	}
	if a.Scope == ScopeRestricted && strings.TrimSpace(a.Restriction) == "" {
		return apperrors.Validation(op, "restriction is required when scope is Restricted")
	}
	if a.Scope == ScopePrivate && strings.TrimSpace(a.Addresses) == "" {
		return apperrors.Validation(op, "addresses is required when scope is Private")
	}
	if a.References != "" {
		if err := validateReferences(a.References); err != nil {
			return err
		}
	}
	if len(a.Info) == 0 {
		return apperrors.Validation(op, "at least one info block is required")
	}
	for i := range a.Info {
		if err := validateInfo(&a.Info[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateInfo(info *Info) error {
	const op = "cap.Validate"

	if strings.TrimSpace(info.Event) == "" {
		return apperrors.Validation(op, "info.event is required")
	}
	if len(info.Category) == 0 {
		return apperrors.Validation(op, "info.category requires at least one entry")
	}
	switch info.Urgency {
	case UrgencyImmediate, UrgencyExpected, UrgencyFuture, UrgencyPast, UrgencyUnknown:
	default:
		return apperrors.Validation(op, "info.urgency is invalid")
	}
	switch info.Severity {
	case SeverityExtreme, SeveritySevere, SeverityModerate, SeverityMinor, SeverityUnknown:
	default:
		return apperrors.Validation(op, "info.severity is invalid")
	}
	switch info.Certainty {
	case CertaintyObserved, CertaintyLikely, CertaintyPossible, CertaintyUnlikely, CertaintyUnknown:
	default:
		return apperrors.Validation(op, "info.certainty is invalid")
	}
	if info.Language != "" && !languageRe.MatchString(info.Language) {
		return apperrors.Validation(op, "info.language must be RFC 3066-like (aa or aa-BB)")
	}
	if info.Web != "" && !strings.HasPrefix(info.Web, "http://") && !strings.HasPrefix(info.Web, "https://") {
		return apperrors.Validation(op, "info.web must be http or https")
	}
	if err := validateTimes(info); err != nil {
		return err
	}
	for i := range info.Area {
		if err := validateArea(&info.Area[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateTimes(info *Info) error {
	const op = "cap.Validate"

	parse := func(s string) (time.Time, bool, error) {
		if s == "" {
			return time.Time{}, false, nil
		}
		t, err := time.Parse(time.RFC3339, s)
		return t, true, err
	}

	effective, hasEffective, err := parse(info.Effective)
	if err != nil {
		return apperrors.Validation(op, "info.effective must be RFC 3339")
	}
	onset, hasOnset, err := parse(info.Onset)
	if err != nil {
		return apperrors.Validation(op, "info.onset must be RFC 3339")
	}
	expires, hasExpires, err := parse(info.Expires)
	if err != nil {
		return apperrors.Validation(op, "info.expires must be RFC 3339")
	}

	if hasEffective && hasOnset && effective.After(onset) {
		return apperrors.Validation(op, "effective must be <= onset")
	}
	if hasOnset && hasExpires && !onset.Before(expires) {
		return apperrors.Validation(op, "onset must be < expires")
	}
	if hasEffective && !hasOnset && hasExpires && !effective.Before(expires) {
		return apperrors.Validation(op, "effective must be < expires")
	}
	return nil
}

func validateArea(area *Area) error {
	const op = "cap.Validate"

	if len(area.Polygon) == 0 && len(area.Circle) == 0 && len(area.Geocode) == 0 {
		return apperrors.Validation(op, "area requires a polygon, circle, or geocode")
	}
	for _, poly := range area.Polygon {
		if err := validatePolygon(poly); err != nil {
			return err
		}
	}
	for _, circle := range area.Circle {
		if err := validateCircle(circle); err != nil {
			return err
		}
	}
	if area.Altitude != nil && area.Ceiling != nil && *area.Altitude >= *area.Ceiling {
		return apperrors.Validation(op, "altitude must be less than ceiling")
	}
	return nil
}

func validatePolygon(poly string) error {
	const op = "cap.Validate"

	points := strings.Fields(poly)
	if len(points) < 4 {
		return apperrors.Validation(op, "polygon requires at least 4 coordinate pairs")
	}
	if points[0] != points[len(points)-1] {
		return apperrors.Validation(op, "polygon must be closed (first point equals last)")
	}
	for _, p := range points {
		if err := validateLatLon(p); err != nil {
			return err
		}
	}
	return nil
}

func validateCircle(circle string) error {
	const op = "cap.Validate"

	parts := strings.Fields(circle)
	if len(parts) != 2 {
		return apperrors.Validation(op, "circle must be \"lat,lon radius\"")
	}
	if err := validateLatLon(parts[0]); err != nil {
		return err
	}
	radius, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || radius <= 0 {
		return apperrors.Validation(op, "circle radius must be a positive number")
	}
	return nil
}

func validateLatLon(pair string) error {
	const op = "cap.Validate"

	parts := strings.Split(pair, ",")
	if len(parts) != 2 {
		return apperrors.Validation(op, fmt.Sprintf("malformed coordinate pair %q", pair))
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil || lat < -90 || lat > 90 {
		return apperrors.Validation(op, fmt.Sprintf("latitude out of range in %q", pair))
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || lon < -180 || lon > 180 {
		return apperrors.Validation(op, fmt.Sprintf("longitude out of range in %q", pair))
	}
	return nil
}

// validateReferences checks that references is whitespace-separated
// sender,identifier,sent-timestamp triplets with an RFC 3339 timestamp.
func validateReferences(references string) error {
	const op = "cap.Validate"

	for _, ref := range strings.Fields(references) {
		parts := strings.Split(ref, ",")
		if len(parts) != 3 {
			return apperrors.Validation(op, fmt.Sprintf("malformed reference %q", ref))
		}
		if _, err := time.Parse(time.RFC3339, parts[2]); err != nil {
			return apperrors.Validation(op, fmt.Sprintf("reference timestamp must be RFC 3339 in %q", ref))
		}
	}
	return nil
}
