// Package ai defines the contract with the external text-generation service.
// The service is an untrusted oracle: whatever it returns is validated by the
// security pipeline before anything executes, and a generation failure is
// never a validator verdict, only "no candidate produced".
package ai

import (
	"context"
	"errors"
)

// Message is one chat message sent to the generation API.
type Message struct {
	Role    string `json:"role"` // "system" | "user"
	Content string `json:"content"`
}

// Generation is a single candidate command produced from a prompt.
type Generation struct {
	// Command is the raw single-line command text.
	Command string
	// Model identifies which model produced it.
	Model string
}

// Provider is the text-generation client interface.
type Provider interface {
	// GenerateCommand turns a natural-language request into one command.
	GenerateCommand(ctx context.Context, input string) (Generation, error)

	// ValidateKey performs a minimal round trip to confirm the API key works.
	ValidateKey(ctx context.Context) error
}

// Collaborator error taxonomy. All of these mean "no candidate command";
// retry and backoff are this layer's responsibility, not the caller's.
var (
	// ErrInvalidKey is a 401: the stored API key is not accepted.
	ErrInvalidKey = errors.New("ai: invalid API key")

	// ErrRateLimited is a 429 that persisted through retries.
	ErrRateLimited = errors.New("ai: rate limited")

	// ErrTimeout is a request deadline that persisted through retries.
	ErrTimeout = errors.New("ai: request timed out")

	// ErrInvalidResponse is a response without usable command text.
	ErrInvalidResponse = errors.New("ai: invalid response")
)
