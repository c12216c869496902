package core

import (
	"context"
	"strings"
	"time"

	"github.com/lsmadison/clinic-forms/internal/config"
	"go.uber.org/zap"
)

// Well-known spam-protection field names shared by every form
const (
	FieldChallenge = "altcha"
	FieldLoadTime  = "form-load-time"
)

// GenericRejection is the deliberately unspecific message returned for
// honeypot trips, so automated abusers learn nothing about the detection.
const GenericRejection = "An error occurred while processing your request."

// ChallengeMissing is returned when no challenge solution was submitted
const ChallengeMissing = "Please complete the security challenge."

// ChallengeFailed is returned for any invalid, tampered, or replayed solution
const ChallengeFailed = "Security challenge verification failed. Please try again."

// RateLimited is returned when a client exceeds the submission cap
const RateLimited = "Too many submissions. Please wait before submitting again."

// SpamGuardService composes the spam checks into the fixed pipeline every
// public form submission goes through: honeypot, challenge verification,
// rate limit, timing, content heuristics, then the optional LLM opinion.
// The first failing check short-circuits the rest.
type SpamGuardService struct {
	verifier    ChallengeVerifier
	rateLimiter RateLimitStore
	llm         LLMClient
	analyzer    *ContentAnalyzer
	cfg         config.SpamConfig
	llmCfg      config.LLMConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewSpamGuardService creates the spam pipeline service. llm may be nil when
// no LLM provider is configured.
func NewSpamGuardService(
	verifier ChallengeVerifier,
	rateLimiter RateLimitStore,
	llm LLMClient,
	analyzer *ContentAnalyzer,
	cfg config.SpamConfig,
	llmCfg config.LLMConfig,
	logger *zap.Logger,
) *SpamGuardService {
	return &SpamGuardService{
		verifier:    verifier,
		rateLimiter: rateLimiter,
		llm:         llm,
		analyzer:    analyzer,
		cfg:         cfg,
		llmCfg:      llmCfg,
		logger:      logger,
		now:         time.Now,
	}
}

// CheckSubmission runs the full pipeline over a submission. nameFields and
// messageFields say which form fields carry names (gibberish check only) and
// which carry free text (full heuristic set).
func (s *SpamGuardService) CheckSubmission(
	ctx context.Context,
	clientKey string,
	form FormFields,
	nameFields []string,
	messageFields []string,
) Verdict {
	// Honeypot: hidden field no human ever fills in
	if strings.TrimSpace(form.Get(s.cfg.HoneypotField)) != "" {
		s.logger.Info("Honeypot field tripped", zap.String("client", clientKey))
		return Verdict{IsSpam: true, Reason: GenericRejection}
	}

	// Proof-of-work challenge. An absent payload is rejected without
	// attempting verification.
	payload := strings.TrimSpace(form.Get(FieldChallenge))
	if payload == "" {
		return Verdict{IsSpam: true, Reason: ChallengeMissing}
	}
	if err := s.verifier.VerifyPayload(payload); err != nil {
		s.logger.Info("Challenge verification failed",
			zap.String("client", clientKey),
			zap.Error(err))
		return Verdict{IsSpam: true, Reason: ChallengeFailed}
	}

	// Rate limit. An unidentifiable client can't be penalized, and a store
	// failure fails open; blocking real users over a backend hiccup is worse
	// than letting a burst through.
	if clientKey != UnknownClient {
		allowed, err := s.rateLimiter.Allow(ctx, clientKey)
		if err != nil {
			s.logger.Error("Rate limit store error", zap.Error(err))
		} else if !allowed {
			s.logger.Info("Rate limit exceeded", zap.String("client", clientKey))
			return Verdict{IsSpam: true, Reason: RateLimited}
		}
	}

	// Timing guard on the embedded form-load timestamp
	if v := CheckFormTiming(form.Get(FieldLoadTime), s.now(), s.cfg.MinFormTime, s.cfg.MaxFormAge); v.IsSpam {
		s.logger.Info("Form timing check failed",
			zap.String("client", clientKey),
			zap.String("reason", v.Reason))
		return v
	}

	// Per-field content heuristics
	for _, field := range nameFields {
		if v := s.analyzer.AnalyzeName(form.Get(field)); v.IsSpam {
			s.logger.Info("Name heuristic flagged submission",
				zap.String("client", clientKey),
				zap.String("field", field))
			return v
		}
	}
	for _, field := range messageFields {
		if v := s.analyzer.AnalyzeMessage(form.Get(field)); v.IsSpam {
			s.logger.Info("Content heuristic flagged submission",
				zap.String("client", clientKey),
				zap.String("field", field),
				zap.String("reason", v.Reason))
			return v
		}
	}

	// Optional LLM second opinion on whatever free text is present
	if v := s.llmOpinion(ctx, clientKey, form, nameFields, messageFields); v.IsSpam {
		return v
	}

	return NotSpam
}

// llmOpinion asks the configured LLM to score the message. Classifier errors
// fail open; the heuristics above have already had their say.
func (s *SpamGuardService) llmOpinion(
	ctx context.Context,
	clientKey string,
	form FormFields,
	nameFields []string,
	messageFields []string,
) Verdict {
	if s.llm == nil || !s.llmCfg.Enabled {
		return NotSpam
	}

	var bodyParts []string
	for _, field := range messageFields {
		if text := strings.TrimSpace(form.Get(field)); text != "" {
			bodyParts = append(bodyParts, text)
		}
	}
	if len(bodyParts) == 0 {
		return NotSpam
	}

	var nameParts []string
	for _, field := range nameFields {
		if text := strings.TrimSpace(form.Get(field)); text != "" {
			nameParts = append(nameParts, text)
		}
	}

	email := form.Get("email-address")
	if email == "" {
		email = form.Get("email")
	}

	msg := &Message{
		Name:  strings.Join(nameParts, " "),
		Email: email,
		Body:  strings.Join(bodyParts, "\n\n"),
	}

	result, err := s.llm.AnalyzeMessage(ctx, msg)
	if err != nil {
		s.logger.Error("LLM analysis failed", zap.Error(err))
		return NotSpam
	}

	s.logger.Debug("LLM analysis complete",
		zap.String("client", clientKey),
		zap.Float64("score", result.Score),
		zap.String("model", result.ModelUsed))

	if result.Score >= s.llmCfg.Threshold {
		s.logger.Info("LLM flagged submission",
			zap.String("client", clientKey),
			zap.Float64("score", result.Score),
			zap.String("explanation", result.Explanation))
		return Verdict{IsSpam: true, Reason: "Message appears to be spam."}
	}

	return NotSpam
}

// AnalyzeText runs only the content heuristics (and the LLM opinion when
// enabled) over a standalone message. Used by the spam-check CLI.
func (s *SpamGuardService) AnalyzeText(ctx context.Context, text string) Verdict {
	if v := s.analyzer.AnalyzeMessage(text); v.IsSpam {
		return v
	}
	if s.llm != nil && s.llmCfg.Enabled {
		result, err := s.llm.AnalyzeMessage(ctx, &Message{Body: text})
		if err != nil {
			s.logger.Error("LLM analysis failed", zap.Error(err))
			return NotSpam
		}
		if result.Score >= s.llmCfg.Threshold {
			return Verdict{IsSpam: true, Reason: result.Explanation}
		}
	}
	return NotSpam
}
