package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const statusError = "error"

type urlRequest struct {
	OriginalURL string `json:"original_url" validate:"required,http_url"`
}

type urlResponse struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"short_code"`
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toURLResponse(link *entity.ShortLink) urlResponse {
	return urlResponse{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
	}
}

// urlStatsResponse is the body of every endpoint that returns a link, so the
// access counter is always visible.
type urlStatsResponse struct {
	urlResponse
	Stats urlStats `json:"stats"`
}

type urlStats struct {
	AccessCount int64 `json:"access_count"`
}

func toURLStatsResponse(link *entity.ShortLink) urlStatsResponse {
	return urlStatsResponse{
		urlResponse: toURLResponse(link),
		Stats:       urlStats{AccessCount: link.AccessCount},
	}
}

func toURLStatsResponses(links []entity.ShortLink) []urlStatsResponse {
	resp := make([]urlStatsResponse, len(links))
	for i := range links {
		resp[i] = toURLStatsResponse(&links[i])
	}

	return resp
}

type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

func newErrorResponse(message string, errs ...validationError) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: message,
		Errors:  errs,
	}
}

var (
	emptyRequestBodyResponse   = newErrorResponse("empty request body")
	invalidRequestBodyResponse = newErrorResponse("invalid request body")
	urlNotFoundResponse        = newErrorResponse("url not found")
	serverErrorResponse        = newErrorResponse("server error occurred")

	invalidURLResponse = newErrorResponse("validation error", validationError{
		Field:   "original_url",
		Message: "invalid url",
	})
)

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url", "http_url":
		return "invalid url"
	default:
		return "invalid value"
	}
}

func validationErrorResponse(err error) errorResponse {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return newErrorResponse("validation error")
	}

	errs := make([]validationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, validationError{
			Field:   fe.Field(),
			Message: messageForTag(fe.Tag()),
		})
	}

	return newErrorResponse("validation error", errs...)
}
