package service

import (
	"regexp"
	"strconv"
	"strings"

	"castgate/internal/biz"
)

const (
	maxTermLength = 250
	maxLimit      = 200

	defaultCountry     = "us"
	defaultSearchLimit = 25
	defaultChartLimit  = 50
)

var (
	countryPattern = regexp.MustCompile(`^[a-zA-Z]{2}$`)
	idPattern      = regexp.MustCompile(`^[0-9]{1,12}$`)
	genrePattern   = regexp.MustCompile(`^[0-9]{1,6}$`)
)

// validateTerm normalizes a search term. Rejections are client errors and
// never touch the circuit breaker.
func validateTerm(raw string) (string, error) {
	term := strings.TrimSpace(raw)
	if term == "" {
		return "", biz.NewValidationError("term", "must not be empty")
	}
	if len(term) > maxTermLength {
		return "", biz.NewValidationError("term", "exceeds maximum length")
	}
	return term, nil
}

// validateCountry normalizes an ISO 3166-1 alpha-2 country code,
// defaulting to "us" when absent.
func validateCountry(raw string) (string, error) {
	if raw == "" {
		return defaultCountry, nil
	}
	if !countryPattern.MatchString(raw) {
		return "", biz.NewValidationError("country", "must be a two-letter country code")
	}
	return strings.ToLower(raw), nil
}

// validateLimit parses a result limit within [1, maxLimit].
func validateLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, biz.NewValidationError("limit", "must be an integer")
	}
	if n < 1 || n > maxLimit {
		return 0, biz.NewValidationError("limit", "must be between 1 and 200")
	}
	return n, nil
}

// validateID parses a numeric directory item id.
func validateID(raw string) (string, error) {
	if raw == "" {
		return "", biz.NewValidationError("id", "must not be empty")
	}
	if !idPattern.MatchString(raw) {
		return "", biz.NewValidationError("id", "must be a numeric identifier")
	}
	return raw, nil
}

// validateGenre parses an optional genre id against the static genre table.
// An empty value means "all genres".
func validateGenre(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	if !genrePattern.MatchString(raw) {
		return "", biz.NewValidationError("genre", "must be a numeric genre id")
	}
	id, err := strconv.Atoi(raw)
	if err != nil || !GenreExists(id) {
		return "", biz.NewValidationError("genre", "unknown genre id")
	}
	return raw, nil
}
