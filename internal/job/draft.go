package job

import (
	"strings"
	"time"

	"findsub/marketplace-service/internal/apperr"
)

// Draft is the wire form of Fields shared by the HTTP and gRPC transports.
// Dates accept either YYYY-MM-DD or RFC 3339.
type Draft struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Location        string   `json:"location"`
	Compensation    string   `json:"compensation"`
	Requirements    string   `json:"requirements"`
	Category        string   `json:"category"`
	RequiredKinkIDs []string `json:"requiredKinkIds"`
	StartDate       string   `json:"startDate"`
	StartTime       string   `json:"startTime"`
	DurationMinutes int      `json:"durationMinutes"`
	ExpiresAt       string   `json:"expiresAt"`
}

// Fields parses the draft's dates. Everything else is validated by Service.
func (d Draft) Fields() (Fields, error) {
	f := Fields{
		Title:           d.Title,
		Description:     d.Description,
		Location:        d.Location,
		Compensation:    d.Compensation,
		Requirements:    d.Requirements,
		Category:        d.Category,
		RequiredKinkIDs: d.RequiredKinkIDs,
		StartTime:       d.StartTime,
		DurationMinutes: d.DurationMinutes,
	}
	start, err := parseDate("startDate", d.StartDate)
	if err != nil {
		return f, err
	}
	if start != nil {
		f.StartDate = *start
	}
	if f.ExpiresAt, err = parseDate("expiresAt", d.ExpiresAt); err != nil {
		return f, err
	}
	return f, nil
}

func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Invalid(field, "%s must be YYYY-MM-DD or RFC 3339", field)
}
