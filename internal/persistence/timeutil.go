package persistence

import "time"

const isoLayout = time.RFC3339

// nowISO returns the current time as an ISO-8601 UTC string, the storage
// format spec §6 mandates for every timestamp column.
func nowISO() string {
	return time.Now().UTC().Format(isoLayout)
}

// parseTime parses an ISO-8601 UTC string column back into a time.Time,
// returning the zero value for an empty or unparsable string rather than
// surfacing a parse error for what should always be our own output.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseTimePtr parses an optional ISO-8601 UTC string column (NULL in SQL
// surfaces as the Go zero value "").
func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseTime(s)
	return &t
}

// formatTimePtr renders an optional time.Time as an ISO-8601 string, or
// empty for nil.
func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(isoLayout)
}
