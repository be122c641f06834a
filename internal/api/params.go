package api

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/liftdiag/internal/analytics"
)

const dateLayout = "2006-01-02"

// parseIntParam parses an integer parameter from query string.
// Returns 0 and false if the parameter doesn't exist or is invalid.
func parseIntParam(query url.Values, key string) (int, bool) {
	if val := query.Get(key); val != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n, true
		}
	}
	return 0, false
}

// parseBoolParam parses a boolean parameter from query string.
// Accepts: true/false, 1/0, yes/no (case-insensitive).
func parseBoolParam(query url.Values, key string) (bool, bool) {
	if val := query.Get(key); val != "" {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes":
			return true, true
		default:
			return false, true
		}
	}
	return false, false
}

// parseDateParam parses a YYYY-MM-DD parameter. A present but malformed
// value is a *ParamError; an absent one returns nil.
func parseDateParam(query url.Values, key string) (*time.Time, error) {
	val := strings.TrimSpace(query.Get(key))
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, val)
	if err != nil {
		return nil, &ParamError{
			Field:   key,
			Value:   val,
			Message: "invalid " + key + " date. Use YYYY-MM-DD",
		}
	}
	return &t, nil
}

// parseLimitParam parses limit with a default and upper bound.
func parseLimitParam(query url.Values, defaultLimit, maxLimit int) int {
	limit, ok := parseIntParam(query, "limit")
	if !ok || limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// parseScopeParam splits a comma-separated scope list, dropping blanks.
func parseScopeParam(query url.Values) []string {
	raw := query.Get("scope")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var scope []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			scope = append(scope, part)
		}
	}
	return scope
}

// parseFilter builds the view filter from q, from, to and scope.
func parseFilter(query url.Values) (analytics.Filter, error) {
	var f analytics.Filter

	from, err := parseDateParam(query, "from")
	if err != nil {
		return f, err
	}
	to, err := parseDateParam(query, "to")
	if err != nil {
		return f, err
	}
	if from != nil && to != nil && from.After(*to) {
		return f, &ParamError{
			Field:   "from",
			Value:   query.Get("from"),
			Message: "from must not be after to",
		}
	}

	f.From = from
	f.To = to
	f.Term = strings.TrimSpace(query.Get("q"))
	f.Scope = parseScopeParam(query)
	return f, nil
}

// ParamError represents a parameter parsing error.
type ParamError struct {
	Field   string
	Value   string
	Message string
}

func (e *ParamError) Error() string {
	return e.Message
}
