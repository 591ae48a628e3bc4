package apiutil

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DateFromQuery returns the validated "date" query parameter, or empty when
// absent.
func DateFromQuery(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return "", nil
	}
	if _, err := time.Parse(dateLayout, raw); err != nil {
		return "", FieldError{Field: "date", Reason: "must be formatted YYYY-MM-DD"}
	}
	return raw, nil
}

// RequireDateFromQuery returns the "date" query parameter or an error when it
// is absent or malformed.
func RequireDateFromQuery(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return time.Time{}, FieldError{Field: "date", Reason: "is required"}
	}
	date, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, FieldError{Field: "date", Reason: "must be formatted YYYY-MM-DD"}
	}
	return date, nil
}

// RequireQuery returns a non-empty query parameter or an error naming it.
func RequireQuery(r *http.Request, key string) (string, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return "", FieldError{Field: key, Reason: "is required"}
	}
	return value, nil
}

// FormatPriceYen renders a yen amount for display.
func FormatPriceYen(yen int) string {
	return fmt.Sprintf("¥%d", yen)
}
