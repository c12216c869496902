package core

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/lsmadison/clinic-forms/internal/config"
	"github.com/lsmadison/clinic-forms/internal/utils"
	"go.uber.org/zap"
)

type fakeVerifier struct {
	err   error
	calls int
}

func (f *fakeVerifier) VerifyPayload(payload string) error {
	f.calls++
	return f.err
}

type fakeLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (f *fakeLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	f.calls++
	return f.allowed, f.err
}

type fakeLLM struct {
	result *SpamAnalysisResult
	err    error
	calls  int
}

func (f *fakeLLM) AnalyzeMessage(ctx context.Context, msg *Message) (*SpamAnalysisResult, error) {
	f.calls++
	return f.result, f.err
}

func newTestService(verifier *fakeVerifier, limiter *fakeLimiter, llm LLMClient, llmCfg config.LLMConfig) *SpamGuardService {
	cfg := testSpamConfig()
	cfg.MinFormTime = 3 * time.Second
	cfg.MaxFormAge = time.Hour
	tp := utils.NewTextProcessor(zap.NewNop())
	analyzer := NewContentAnalyzer(cfg, tp)
	return NewSpamGuardService(verifier, limiter, llm, analyzer, cfg, llmCfg, zap.NewNop())
}

func cleanForm(now time.Time) FormFields {
	return FormFields{
		"first-name":   "Sarah",
		"last-name":    "Miller",
		FieldChallenge: "c29sdmVk",
		FieldLoadTime:  strconv.FormatInt(now.Add(-time.Minute).UnixMilli(), 10),
		"message":      "I would like to schedule an appointment please.",
	}
}

func TestCheckSubmissionHoneypot(t *testing.T) {
	verifier := &fakeVerifier{}
	limiter := &fakeLimiter{allowed: true}
	svc := newTestService(verifier, limiter, nil, config.LLMConfig{})

	form := cleanForm(time.Now())
	form["bot-field"] = "gotcha"

	v := svc.CheckSubmission(context.Background(), "1.2.3.4", form, nil, nil)
	if !v.IsSpam {
		t.Fatal("honeypot submission should be rejected")
	}
	if v.Reason != GenericRejection {
		t.Errorf("honeypot reason = %q, want the generic message", v.Reason)
	}
	if verifier.calls != 0 {
		t.Error("honeypot rejection should short-circuit before challenge verification")
	}
}

func TestCheckSubmissionChallenge(t *testing.T) {
	t.Run("missing payload", func(t *testing.T) {
		verifier := &fakeVerifier{}
		svc := newTestService(verifier, &fakeLimiter{allowed: true}, nil, config.LLMConfig{})

		form := cleanForm(time.Now())
		delete(form, FieldChallenge)

		v := svc.CheckSubmission(context.Background(), "1.2.3.4", form, nil, nil)
		if !v.IsSpam || v.Reason != ChallengeMissing {
			t.Fatalf("got %+v, want missing-challenge rejection", v)
		}
		if verifier.calls != 0 {
			t.Error("empty payload should not reach the verifier")
		}
	})

	t.Run("invalid payload", func(t *testing.T) {
		verifier := &fakeVerifier{err: errors.New("bad signature")}
		svc := newTestService(verifier, &fakeLimiter{allowed: true}, nil, config.LLMConfig{})

		v := svc.CheckSubmission(context.Background(), "1.2.3.4", cleanForm(time.Now()), nil, nil)
		if !v.IsSpam || v.Reason != ChallengeFailed {
			t.Fatalf("got %+v, want challenge-failed rejection", v)
		}
	})
}

func TestCheckSubmissionRateLimit(t *testing.T) {
	t.Run("over the limit", func(t *testing.T) {
		limiter := &fakeLimiter{allowed: false}
		svc := newTestService(&fakeVerifier{}, limiter, nil, config.LLMConfig{})

		v := svc.CheckSubmission(context.Background(), "1.2.3.4", cleanForm(time.Now()), nil, nil)
		if !v.IsSpam || v.Reason != RateLimited {
			t.Fatalf("got %+v, want rate-limited rejection", v)
		}
	})

	t.Run("unknown client skips the limiter", func(t *testing.T) {
		limiter := &fakeLimiter{allowed: false}
		svc := newTestService(&fakeVerifier{}, limiter, nil, config.LLMConfig{})

		v := svc.CheckSubmission(context.Background(), UnknownClient, cleanForm(time.Now()), nil, nil)
		if v.IsSpam {
			t.Fatalf("unknown client should never be rate limited, got %+v", v)
		}
		if limiter.calls != 0 {
			t.Error("limiter should not be consulted for the unknown client")
		}
	})

	t.Run("store error fails open", func(t *testing.T) {
		limiter := &fakeLimiter{err: errors.New("backend down")}
		svc := newTestService(&fakeVerifier{}, limiter, nil, config.LLMConfig{})

		v := svc.CheckSubmission(context.Background(), "1.2.3.4", cleanForm(time.Now()), nil, nil)
		if v.IsSpam {
			t.Fatalf("limiter errors should fail open, got %+v", v)
		}
	})
}

func TestCheckSubmissionTiming(t *testing.T) {
	svc := newTestService(&fakeVerifier{}, &fakeLimiter{allowed: true}, nil, config.LLMConfig{})

	form := cleanForm(time.Now())
	form[FieldLoadTime] = strconv.FormatInt(time.Now().UnixMilli(), 10)

	v := svc.CheckSubmission(context.Background(), "1.2.3.4", form, nil, nil)
	if !v.IsSpam {
		t.Fatal("instant submission should be rejected")
	}
	if v.Reason != "Form submitted too quickly. Please try again." {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestCheckSubmissionContentFields(t *testing.T) {
	svc := newTestService(&fakeVerifier{}, &fakeLimiter{allowed: true}, nil, config.LLMConfig{})

	t.Run("gibberish name field", func(t *testing.T) {
		form := cleanForm(time.Now())
		form["first-name"] = "xQ7mxQ7mxQ7mxQ7mxQ7m"

		v := svc.CheckSubmission(context.Background(), "1.2.3.4", form,
			[]string{"first-name", "last-name"}, []string{"message"})
		if !v.IsSpam || v.Reason != "Name appears to be invalid." {
			t.Fatalf("got %+v, want invalid-name rejection", v)
		}
	})

	t.Run("spam message field", func(t *testing.T) {
		form := cleanForm(time.Now())
		form["message"] = "Buy now! Click here! Act now! Guaranteed."

		v := svc.CheckSubmission(context.Background(), "1.2.3.4", form,
			[]string{"first-name", "last-name"}, []string{"message"})
		if !v.IsSpam || v.Reason != "Message appears to be promotional spam." {
			t.Fatalf("got %+v, want promotional-spam rejection", v)
		}
	})

	t.Run("clean submission passes", func(t *testing.T) {
		v := svc.CheckSubmission(context.Background(), "1.2.3.4", cleanForm(time.Now()),
			[]string{"first-name", "last-name"}, []string{"message"})
		if v.IsSpam {
			t.Fatalf("clean submission rejected: %+v", v)
		}
	})
}

func TestCheckSubmissionLLMOpinion(t *testing.T) {
	llmCfg := config.LLMConfig{Enabled: true, Provider: "openai", Threshold: 0.7}

	t.Run("high score rejects", func(t *testing.T) {
		llm := &fakeLLM{result: &SpamAnalysisResult{Score: 0.95, Explanation: "obvious spam"}}
		svc := newTestService(&fakeVerifier{}, &fakeLimiter{allowed: true}, llm, llmCfg)

		v := svc.CheckSubmission(context.Background(), "1.2.3.4", cleanForm(time.Now()),
			[]string{"first-name"}, []string{"message"})
		if !v.IsSpam {
			t.Fatal("high LLM score should reject the submission")
		}
		if llm.calls != 1 {
			t.Errorf("llm calls = %d, want 1", llm.calls)
		}
	})

	t.Run("low score passes", func(t *testing.T) {
		llm := &fakeLLM{result: &SpamAnalysisResult{Score: 0.1}}
		svc := newTestService(&fakeVerifier{}, &fakeLimiter{allowed: true}, llm, llmCfg)

		v := svc.CheckSubmission(context.Background(), "1.2.3.4", cleanForm(time.Now()),
			[]string{"first-name"}, []string{"message"})
		if v.IsSpam {
			t.Fatalf("low LLM score rejected: %+v", v)
		}
	})

	t.Run("classifier error fails open", func(t *testing.T) {
		llm := &fakeLLM{err: errors.New("api unavailable")}
		svc := newTestService(&fakeVerifier{}, &fakeLimiter{allowed: true}, llm, llmCfg)

		v := svc.CheckSubmission(context.Background(), "1.2.3.4", cleanForm(time.Now()),
			[]string{"first-name"}, []string{"message"})
		if v.IsSpam {
			t.Fatalf("LLM errors should fail open, got %+v", v)
		}
	})

	t.Run("disabled LLM is never called", func(t *testing.T) {
		llm := &fakeLLM{result: &SpamAnalysisResult{Score: 1.0}}
		svc := newTestService(&fakeVerifier{}, &fakeLimiter{allowed: true}, llm, config.LLMConfig{})

		v := svc.CheckSubmission(context.Background(), "1.2.3.4", cleanForm(time.Now()),
			[]string{"first-name"}, []string{"message"})
		if v.IsSpam || llm.calls != 0 {
			t.Fatalf("disabled LLM consulted (calls=%d, verdict=%+v)", llm.calls, v)
		}
	})
}
