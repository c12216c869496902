package core

import (
	"time"
)

// UnknownClient is the sentinel client key used when no address could be
// resolved from the request. It is never rate limited.
const UnknownClient = "unknown"

// Verdict is the outcome of a spam check
type Verdict struct {
	IsSpam bool
	Reason string
}

// NotSpam is the zero verdict returned by passing checks
var NotSpam = Verdict{}

// FormFields is the caller-normalized view of a submitted form. The spam
// pipeline treats every form type uniformly as a field-name to value mapping.
type FormFields map[string]string

// Get returns the value for a field, or the empty string
func (f FormFields) Get(name string) string {
	return f[name]
}

// RateLimitEntry tracks submissions from a single client key within a window
type RateLimitEntry struct {
	ClientKey      string
	Submissions    int
	WindowStart    time.Time
	LastSubmission time.Time
}

// Message is the free-text portion of a submission handed to the optional
// LLM classifier
type Message struct {
	Name  string
	Email string
	Body  string
}

// SpamAnalysisResult represents the result of an LLM spam analysis
type SpamAnalysisResult struct {
	IsSpam       bool
	Score        float64
	Confidence   float64
	Explanation  string
	AnalyzedAt   time.Time
	ModelUsed    string
	ProcessingID string
}

// ContactSubmission is an accepted contact form submission
type ContactSubmission struct {
	ID                    string
	FirstName             string
	LastName              string
	Email                 string
	Phone                 string
	Message               string
	SubscribeToNewsletter bool
	SubmittedAt           time.Time
}

// Address is a postal address from the intake form
type Address struct {
	StreetAddress string `json:"streetAddress,omitempty"`
	AddressLine2  string `json:"addressLine2,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	ZipCode       string `json:"zipCode,omitempty"`
	Country       string `json:"country,omitempty"`
}

// EmergencyContact is the emergency contact section of the intake form
type EmergencyContact struct {
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Physician string `json:"physician,omitempty"`
}

// HowDidYouHear records how the client found the clinic
type HowDidYouHear struct {
	Source       string `json:"source,omitempty"`
	OtherSpecify string `json:"otherSpecify,omitempty"`
}

// ReasonForVisit records why the client is seeking treatment
type ReasonForVisit struct {
	Purpose            string `json:"purpose,omitempty"`
	MedicalStartDate   string `json:"medicalStartDate,omitempty"`
	ProblemDescription string `json:"problemDescription,omitempty"`
}

// IntakeSubmission is an accepted intake form submission. Medical conditions
// are grouped by body system; each group holds the checked condition names
// plus an optional free-text note.
type IntakeSubmission struct {
	ID               string
	FirstName        string
	LastName         string
	Email            string
	PhoneDaytime     string
	PhoneEvening     string
	DateOfBirth      string
	Pronouns         string
	Address          Address
	EmergencyContact EmergencyContact
	HowDidYouHear    HowDidYouHear
	ReasonForVisit   ReasonForVisit
	Conditions       map[string][]string
	ConditionNotes   map[string]string
	SubmittedAt      time.Time
}

// Subscriber is a newsletter subscriber record
type Subscriber struct {
	Email          string
	IsSubscribed   bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	UnsubscribedAt time.Time
}
