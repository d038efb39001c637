package advisor

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means the transport lacks credentials or an endpoint.
	ErrNotConfigured = errors.New("advisor not configured")
	// ErrInvalidRequest means the request itself is unusable.
	ErrInvalidRequest = errors.New("invalid advisor request")
	// ErrEmptyResponse means the provider answered without any text.
	ErrEmptyResponse = errors.New("advisor returned no text")
)

// Request is one prompt sent to the generative provider.
type Request struct {
	System string
	Prompt string
}

// Citation points at a source the provider grounded its answer on.
type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Response is the provider's answer.
type Response struct {
	Text      string
	Citations []Citation
}

//go:generate mockgen -source=transport.go -destination=mocks/transport.go -package=mocks Transport

// Transport sends a single request to a generative provider.
type Transport interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// StatusError reports a non-2xx provider response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("advisor request status %d: %s", e.Code, e.Body)
}
