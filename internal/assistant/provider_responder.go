package assistant

import (
	"context"
	"log"
	"regexp"
	"strings"
)

// escalationPhrases matches model replies that themselves announce a
// hand-off, so the ticket state follows what the customer was told.
var escalationPhrases = regexp.MustCompile(`(?i)encaminhar|técnico|humano|não consigo`)

// ProviderResponder delegates reply generation to a language-model
// provider while keeping the same escalation rules as RuleResponder.
// Provider failures never reach the caller; they become a forced
// escalation so the ticket is not left unanswered.
type ProviderResponder struct {
	provider    Provider
	attempts    AttemptStore
	maxAttempts int
	logger      *log.Logger
}

// ProviderResponderOption configures a ProviderResponder.
type ProviderResponderOption func(*ProviderResponder)

// WithProviderLogger sets a custom logger.
func WithProviderLogger(l *log.Logger) ProviderResponderOption {
	return func(r *ProviderResponder) { r.logger = l }
}

// WithProviderMaxAttempts overrides the escalation cap.
func WithProviderMaxAttempts(n int) ProviderResponderOption {
	return func(r *ProviderResponder) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// NewProviderResponder creates a responder that asks provider for each
// reply, tracking attempts in the given store.
func NewProviderResponder(provider Provider, attempts AttemptStore, opts ...ProviderResponderOption) *ProviderResponder {
	r := &ProviderResponder{
		provider:    provider,
		attempts:    attempts,
		maxAttempts: DefaultMaxAttempts,
		logger:      log.New(log.Writer(), "[ASSISTANT] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetResponse implements Responder.
func (r *ProviderResponder) GetResponse(ctx context.Context, ticketID, userText string) Response {
	if confirmsResolved(userText) {
		return autoResolvedResponse()
	}
	if wantsHuman(userText) {
		return escalationResponse(ticketID)
	}

	before, err := r.attempts.Get(ctx, ticketID)
	if err != nil {
		r.logger.Printf("attempt store get failed for ticket %s: %v", ticketID, err)
		return failureResponse(ticketID)
	}
	if before >= r.maxAttempts {
		return escalationResponse(ticketID)
	}

	n, err := r.attempts.Increment(ctx, ticketID)
	if err != nil {
		r.logger.Printf("attempt store increment failed for ticket %s: %v", ticketID, err)
		return failureResponse(ticketID)
	}

	reply, err := r.provider.Complete(ctx, userText)
	if err != nil {
		r.logger.Printf("provider %s failed for ticket %s: %v", r.provider.Name(), ticketID, err)
		return failureResponse(ticketID)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = genericReply
	}

	requiresHuman := n >= r.maxAttempts || escalationPhrases.MatchString(reply)
	return Response{Text: reply, RequiresHuman: requiresHuman}
}
