// Package entity defines the entities and errors used in the application.
// It includes the ShortLink struct, which maps a short code to an original URL
// together with its access statistics, and the errors shared by all layers.
package entity

import (
	"errors"
	"regexp"
	"time"
)

var (
	// ErrInvalidURL is returned when a URL does not look like an http(s) address with a dotted host.
	ErrInvalidURL = errors.New("invalid url")
	// ErrShortCodeExists is returned when attempting to create a short link with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when a short link with the specified short code cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrAllocationExhausted is returned when no free short code was found within the retry budget.
	ErrAllocationExhausted = errors.New("maximum retries exceeded for generating short code")
)

var urlPattern = regexp.MustCompile(`^https?://.+\..+`)

// ValidateURL reports ErrInvalidURL unless rawURL is an http or https URL whose remainder contains a dot.
func ValidateURL(rawURL string) error {
	if !urlPattern.MatchString(rawURL) {
		return ErrInvalidURL
	}

	return nil
}

// ShortLink represents a shortened URL.
type ShortLink struct {
	ID          int64     // ID is the unique identifier assigned by the store.
	ShortCode   string    // ShortCode is the generated code used to shorten the original URL.
	OriginalURL string    // OriginalURL is the full URL that the short code resolves to.
	Stats                 // Stats contains statistics about the short link.
	CreatedAt   time.Time // CreatedAt is the timestamp when the short link was created.
	UpdatedAt   time.Time // UpdatedAt is the timestamp when the original URL was last set.
}

// Stats contains statistics related to a short link.
type Stats struct {
	AccessCount int64 // AccessCount is the number of times the short code has been resolved.
}
