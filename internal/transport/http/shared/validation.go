package shared

import (
	"net/http"
	"net/mail"
	"slices"
	"strings"
	"time"

	"marketingops/internal/transport/http/api"
)

const dateLayout = "2006-01-02"

// ParseDate accepts RFC3339 timestamps or YYYY-MM-DD dates and returns UTC.
// An empty value yields the zero time.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.UTC(), nil
	}
	return time.Parse(dateLayout, value)
}

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator collects field issues for a request payload. The zero value is
// ready to use.
type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{}
}

// Add records an issue. Repeating the same field and reason is a no-op.
func (v *Validator) Add(field, reason string) {
	issue := ValidationIssue{Field: strings.TrimSpace(field), Reason: strings.TrimSpace(reason)}
	if issue.Reason == "" || slices.Contains(v.issues, issue) {
		return
	}
	v.issues = append(v.issues, issue)
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

// Enum checks value against allowed, ignoring case. Empty values pass so
// that optional fields can be checked without a Required call.
func (v *Validator) Enum(field, value string, allowed []string, reason string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if slices.ContainsFunc(allowed, func(candidate string) bool {
		return strings.EqualFold(value, strings.TrimSpace(candidate))
	}) {
		return
	}
	v.Add(field, reason)
}

func (v *Validator) Email(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v.Add(field, "must be a valid email address")
	}
}

func (v *Validator) Positive(field string, value int) {
	if value <= 0 {
		v.Add(field, "must be greater than zero")
	}
}

// Date parses a required date field.
func (v *Validator) Date(field, raw string) (time.Time, bool) {
	parsed, err := ParseDate(raw)
	if err != nil || parsed.IsZero() {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}

func (v *Validator) HasIssues() bool {
	return len(v.issues) > 0
}

// Issues returns the collected issues ordered by field then reason.
func (v *Validator) Issues() []ValidationIssue {
	if len(v.issues) == 0 {
		return nil
	}
	out := slices.Clone(v.issues)
	slices.SortStableFunc(out, func(a, b ValidationIssue) int {
		if c := strings.Compare(a.Field, b.Field); c != 0 {
			return c
		}
		return strings.Compare(a.Reason, b.Reason)
	})
	return out
}

// Reject writes a validation failure when issues were collected and reports
// whether it did.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
		map[string]any{"fields": issues}, requestID)
}
