package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lsmadison/clinic-forms/internal/core"
	"github.com/lsmadison/clinic-forms/internal/utils"
	"go.uber.org/zap"
)

const maxMultipartMemory = 1 << 20

// Field names shared with the site's form markup
const (
	fieldFirstName    = "first-name"
	fieldLastName     = "last-name"
	fieldContactEmail = "email-address"
	fieldIntakeEmail  = "email"
	fieldPhone        = "phone-number"
	fieldMessage      = "message"
	fieldNewsletter   = "newsletter-subscribe"
)

// conditionSections are the medical condition checkbox groups on the intake
// form, longest slug first so prefix matching is unambiguous.
var conditionSections = []string{
	"hematologic-lymphatic",
	"female-reproductive",
	"gastro-intestinal",
	"ears-nose-throat",
	"musculoskeletal",
	"cardiovascular",
	"neurological",
	"allergies",
	"emotional",
	"urinary",
	"general",
	"skin",
}

type apiResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
	SubmissionID string `json:"submissionId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiResponse{Success: false, Error: msg})
}

// formFields parses a urlencoded or multipart body into the pipeline's
// field map. Repeated fields keep their first value.
func formFields(r *http.Request) (core.FormFields, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil &&
		!errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}

	fields := make(core.FormFields, len(r.Form))
	for name, values := range r.Form {
		if len(values) > 0 {
			fields[name] = values[0]
		}
	}
	return fields, nil
}

func validEmail(address string) bool {
	addr, err := mail.ParseAddress(address)
	return err == nil && addr.Address == address
}

// handleChallenge issues a fresh proof-of-work challenge
func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	challenge, err := s.verifier.CreateChallenge()
	if err != nil {
		s.logger.Error("Failed to create challenge", zap.Error(err))
		writeError(w, http.StatusInternalServerError, core.GenericRejection)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

// handleContact accepts a contact form submission
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	form, err := formFields(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form submission.")
		return
	}

	clientKey := s.clientIP.Resolve(r)
	verdict := s.guard.CheckSubmission(r.Context(), clientKey, form,
		[]string{fieldFirstName, fieldLastName},
		[]string{fieldMessage})
	if verdict.IsSpam {
		writeError(w, http.StatusBadRequest, verdict.Reason)
		return
	}

	firstName := strings.TrimSpace(form.Get(fieldFirstName))
	lastName := strings.TrimSpace(form.Get(fieldLastName))
	email := utils.NormalizeEmail(form.Get(fieldContactEmail))
	if firstName == "" || lastName == "" || email == "" {
		writeError(w, http.StatusBadRequest,
			"Missing required fields: first name, last name, and email are required.")
		return
	}
	if !validEmail(email) {
		writeError(w, http.StatusBadRequest, "Please provide a valid email address.")
		return
	}

	subscribe := form.Get(fieldNewsletter) == "on" || form.Get(fieldNewsletter) == "true"
	sub := &core.ContactSubmission{
		ID:                    uuid.NewString(),
		FirstName:             firstName,
		LastName:              lastName,
		Email:                 email,
		Phone:                 strings.TrimSpace(form.Get(fieldPhone)),
		Message:               strings.TrimSpace(form.Get(fieldMessage)),
		SubscribeToNewsletter: subscribe,
		SubmittedAt:           time.Now(),
	}

	if err := s.store.SaveContact(r.Context(), sub); err != nil {
		s.logger.Error("Failed to save contact submission", zap.Error(err))
		writeError(w, http.StatusInternalServerError, core.GenericRejection)
		return
	}

	if subscribe {
		if _, err := s.store.UpsertSubscriber(r.Context(), email); err != nil {
			s.logger.Error("Failed to subscribe contact to newsletter",
				zap.String("id", sub.ID),
				zap.Error(err))
		}
	}

	// Email delivery never holds up or fails an accepted submission
	go func() {
		if err := s.notifier.ContactReceived(s.notifyCtx(), sub); err != nil {
			s.logger.Error("Failed to send contact notification",
				zap.String("id", sub.ID),
				zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusOK, apiResponse{
		Success:      true,
		Message:      "Thank you for your message! We will get back to you soon.",
		SubmissionID: sub.ID,
	})
}

// handleIntake accepts an intake form submission
func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	form, err := formFields(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form submission.")
		return
	}

	clientKey := s.clientIP.Resolve(r)
	verdict := s.guard.CheckSubmission(r.Context(), clientKey, form,
		[]string{fieldFirstName, fieldLastName},
		[]string{"reason-for-seeking-mld-medical-description"})
	if verdict.IsSpam {
		writeError(w, http.StatusBadRequest, verdict.Reason)
		return
	}

	firstName := strings.TrimSpace(form.Get(fieldFirstName))
	lastName := strings.TrimSpace(form.Get(fieldLastName))
	email := utils.NormalizeEmail(form.Get(fieldIntakeEmail))
	if firstName == "" || lastName == "" || email == "" {
		writeError(w, http.StatusBadRequest,
			"Missing required fields: first name, last name, and email are required.")
		return
	}
	if !validEmail(email) {
		writeError(w, http.StatusBadRequest, "Please provide a valid email address.")
		return
	}

	conditions, notes := parseConditions(form)
	sub := &core.IntakeSubmission{
		ID:           uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PhoneDaytime: strings.TrimSpace(form.Get("phone-day")),
		PhoneEvening: strings.TrimSpace(form.Get("phone-evening")),
		DateOfBirth:  strings.TrimSpace(form.Get("date-of-birth")),
		Pronouns:     strings.TrimSpace(form.Get("pronouns")),
		Address: core.Address{
			StreetAddress: strings.TrimSpace(form.Get("street-address")),
			AddressLine2:  strings.TrimSpace(form.Get("address-line-2")),
			City:          strings.TrimSpace(form.Get("city")),
			State:         strings.TrimSpace(form.Get("state")),
			ZipCode:       strings.TrimSpace(form.Get("zip-code")),
			Country:       strings.TrimSpace(form.Get("country")),
		},
		EmergencyContact: core.EmergencyContact{
			Name:      strings.TrimSpace(form.Get("emergency-contact-name")),
			Phone:     strings.TrimSpace(form.Get("emergency-contact-phone")),
			Physician: strings.TrimSpace(form.Get("emergency-contact-physician")),
		},
		HowDidYouHear: core.HowDidYouHear{
			Source:       strings.TrimSpace(form.Get("hear-about")),
			OtherSpecify: strings.TrimSpace(form.Get("hear-about-other-specify")),
		},
		ReasonForVisit: core.ReasonForVisit{
			Purpose:            strings.TrimSpace(form.Get("reason")),
			MedicalStartDate:   strings.TrimSpace(form.Get("reason-for-seeking-mld-medical-start")),
			ProblemDescription: strings.TrimSpace(form.Get("reason-for-seeking-mld-medical-description")),
		},
		Conditions:     conditions,
		ConditionNotes: notes,
		SubmittedAt:    time.Now(),
	}

	if err := s.store.SaveIntake(r.Context(), sub); err != nil {
		s.logger.Error("Failed to save intake submission", zap.Error(err))
		writeError(w, http.StatusInternalServerError, core.GenericRejection)
		return
	}

	go func() {
		if err := s.notifier.IntakeReceived(s.notifyCtx(), sub); err != nil {
			s.logger.Error("Failed to send intake notification",
				zap.String("id", sub.ID),
				zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusOK, apiResponse{
		Success:      true,
		Message:      "Thank you for submitting your intake form! We will review it and get back to you soon. Please check your email for a confirmation.",
		SubmissionID: sub.ID,
	})
}

// parseConditions collects the medical condition checkbox groups. A field
// like medical-conditions-cardiovascular-dizziness=on records "dizziness"
// under the cardiovascular section; the per-section other-specify fields
// become free-text notes.
func parseConditions(form core.FormFields) (map[string][]string, map[string]string) {
	conditions := make(map[string][]string)
	notes := make(map[string]string)

	for name, value := range form {
		rest, ok := strings.CutPrefix(name, "medical-conditions-")
		if !ok {
			continue
		}
		for _, section := range conditionSections {
			item, found := strings.CutPrefix(rest, section+"-")
			if !found {
				continue
			}
			if item == "other-specify" {
				if note := strings.TrimSpace(value); note != "" {
					notes[section] = note
				}
			} else if value == "on" {
				conditions[section] = append(conditions[section], item)
			}
			break
		}
	}

	if len(conditions) == 0 {
		conditions = nil
	}
	if len(notes) == 0 {
		notes = nil
	}
	return conditions, notes
}

// handleSubscribe adds an email to the newsletter
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	form, err := formFields(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form submission.")
		return
	}

	clientKey := s.clientIP.Resolve(r)
	verdict := s.guard.CheckSubmission(r.Context(), clientKey, form, nil, nil)
	if verdict.IsSpam {
		writeError(w, http.StatusBadRequest, verdict.Reason)
		return
	}

	email := utils.NormalizeEmail(form.Get(fieldIntakeEmail))
	if email == "" {
		email = utils.NormalizeEmail(form.Get(fieldContactEmail))
	}
	if email == "" || !validEmail(email) {
		writeError(w, http.StatusBadRequest, "Please provide a valid email address.")
		return
	}

	isNew, err := s.store.UpsertSubscriber(r.Context(), email)
	if err != nil {
		s.logger.Error("Failed to upsert subscriber", zap.Error(err))
		writeError(w, http.StatusInternalServerError, core.GenericRejection)
		return
	}

	go func() {
		if err := s.notifier.SubscriberJoined(s.notifyCtx(), email, isNew); err != nil {
			s.logger.Error("Failed to send subscription notification",
				zap.String("email", email),
				zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Thank you for subscribing to our newsletter!",
	})
}

// handleUnsubscribe removes an email from the newsletter. The POST form of
// the endpoint answers JSON; the GET form serves one-click unsubscribe links
// from emails and redirects to the site's confirmation page.
func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var email string
	redirect := false

	if r.Method == http.MethodGet {
		email = utils.NormalizeEmail(mux.Vars(r)["email"])
		redirect = true
	} else {
		form, err := formFields(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid form submission.")
			return
		}
		email = utils.NormalizeEmail(form.Get(fieldIntakeEmail))
	}

	if email == "" || !validEmail(email) {
		if redirect {
			http.Redirect(w, r, s.siteBaseURL+"/unsubscribed", http.StatusSeeOther)
			return
		}
		writeError(w, http.StatusBadRequest, "Please provide a valid email address.")
		return
	}

	found, err := s.store.Unsubscribe(r.Context(), email)
	if err != nil {
		s.logger.Error("Failed to unsubscribe", zap.Error(err))
		if !redirect {
			writeError(w, http.StatusInternalServerError, core.GenericRejection)
			return
		}
	}

	if found {
		go func() {
			if err := s.notifier.SubscriberLeft(s.notifyCtx(), email); err != nil {
				s.logger.Error("Failed to send unsubscribe confirmation",
					zap.String("email", email),
					zap.Error(err))
			}
		}()
	}

	if redirect {
		http.Redirect(w, r, s.siteBaseURL+"/unsubscribed", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "You have been unsubscribed from our newsletter.",
	})
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
