package core

import (
	"context"
)

// RateLimitStore tracks submission counts per client key. Allow must perform
// the check-and-increment atomically per key; two concurrent calls for the
// same key may not both observe a count below the maximum.
type RateLimitStore interface {
	// Allow records a submission attempt and reports whether it is within
	// the configured limit
	Allow(ctx context.Context, clientKey string) (bool, error)
}

// ChallengeVerifier validates a client's proof-of-work solution
type ChallengeVerifier interface {
	// VerifyPayload checks an encoded solution payload. A nil return means
	// the solution is valid and has been consumed.
	VerifyPayload(payload string) error
}

// SubmissionStore persists accepted form submissions
type SubmissionStore interface {
	// SaveContact stores a contact form submission
	SaveContact(ctx context.Context, sub *ContactSubmission) error

	// SaveIntake stores an intake form submission
	SaveIntake(ctx context.Context, sub *IntakeSubmission) error

	// UpsertSubscriber marks an email as subscribed, creating the record if
	// needed. Reports whether the subscriber is new.
	UpsertSubscriber(ctx context.Context, email string) (bool, error)

	// Unsubscribe marks an email as unsubscribed. Reports whether the
	// subscriber existed.
	Unsubscribe(ctx context.Context, email string) (bool, error)
}

// Notifier sends best-effort notification emails after a submission has been
// accepted. Failures are logged by callers, never surfaced to the submitter.
type Notifier interface {
	// ContactReceived notifies staff and the submitter about a contact form
	ContactReceived(ctx context.Context, sub *ContactSubmission) error

	// IntakeReceived notifies staff and the submitter about an intake form
	IntakeReceived(ctx context.Context, sub *IntakeSubmission) error

	// SubscriberJoined welcomes a subscriber and notifies staff
	SubscriberJoined(ctx context.Context, email string, isNew bool) error

	// SubscriberLeft confirms an unsubscription
	SubscriberLeft(ctx context.Context, email string) error
}

// LLMClient defines the interface for the optional LLM second opinion on
// message content
type LLMClient interface {
	// AnalyzeMessage scores a form message for spam
	AnalyzeMessage(ctx context.Context, msg *Message) (*SpamAnalysisResult, error)
}
