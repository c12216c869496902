package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lsmadison/clinic-forms/internal/adapters/httpserver"
	"github.com/lsmadison/clinic-forms/internal/adapters/ratelimit"
	"github.com/lsmadison/clinic-forms/internal/adapters/store"
	"github.com/lsmadison/clinic-forms/internal/altcha"
	"github.com/lsmadison/clinic-forms/internal/config"
	"github.com/lsmadison/clinic-forms/internal/core"
	"github.com/lsmadison/clinic-forms/internal/utils"
	"go.uber.org/zap"
)

// recordingNotifier records notification calls so tests can wait for the
// fire-and-forget goroutines
type recordingNotifier struct {
	mu       sync.Mutex
	contacts []*core.ContactSubmission
	intakes  []*core.IntakeSubmission
	joined   []string
	left     []string
	signal   chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{signal: make(chan struct{}, 16)}
}

func (n *recordingNotifier) ContactReceived(ctx context.Context, sub *core.ContactSubmission) error {
	n.mu.Lock()
	n.contacts = append(n.contacts, sub)
	n.mu.Unlock()
	n.signal <- struct{}{}
	return nil
}

func (n *recordingNotifier) IntakeReceived(ctx context.Context, sub *core.IntakeSubmission) error {
	n.mu.Lock()
	n.intakes = append(n.intakes, sub)
	n.mu.Unlock()
	n.signal <- struct{}{}
	return nil
}

func (n *recordingNotifier) SubscriberJoined(ctx context.Context, email string, isNew bool) error {
	n.mu.Lock()
	n.joined = append(n.joined, email)
	n.mu.Unlock()
	n.signal <- struct{}{}
	return nil
}

func (n *recordingNotifier) SubscriberLeft(ctx context.Context, email string) error {
	n.mu.Lock()
	n.left = append(n.left, email)
	n.mu.Unlock()
	n.signal <- struct{}{}
	return nil
}

func (n *recordingNotifier) wait(t *testing.T) {
	t.Helper()
	select {
	case <-n.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

type testEnv struct {
	handler  http.Handler
	store    *store.MemoryStore
	verifier *altcha.Verifier
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	v := config.NewEmptyViper()
	v.Set("challenge.hmac_key", "test-hmac-key")
	v.Set("challenge.max_number", 2000)
	cfg := config.NewFromViper(v)

	logger := zap.NewNop()
	spamCfg, err := cfg.GetSpam()
	if err != nil {
		t.Fatalf("GetSpam: %v", err)
	}
	challengeCfg, err := cfg.GetChallenge()
	if err != nil {
		t.Fatalf("GetChallenge: %v", err)
	}

	verifier := altcha.NewVerifier(challengeCfg, logger)
	limiter := ratelimit.NewMemoryStore(spamCfg.MaxSubmissions,
		spamCfg.RateLimitWindow, spamCfg.SweepInterval, logger)
	t.Cleanup(limiter.Stop)

	tp := utils.NewTextProcessor(logger)
	analyzer := core.NewContentAnalyzer(spamCfg, tp)
	guard := core.NewSpamGuardService(verifier, limiter, nil, analyzer,
		spamCfg, cfg.GetLLM(), logger)

	st := store.NewMemoryStore()
	notifier := newRecordingNotifier()
	resolver := httpserver.NewClientIPResolver(spamCfg.ClientIPHeaders)

	srv, err := httpserver.NewServer(cfg, guard, verifier, resolver, st, notifier, logger)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	return &testEnv{
		handler:  srv.Handler(),
		store:    st,
		verifier: verifier,
		notifier: notifier,
	}
}

func (e *testEnv) solveChallenge(t *testing.T) string {
	t.Helper()
	ch, err := e.verifier.CreateChallenge()
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	payload, err := altcha.Solve(ch)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	return payload
}

func (e *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Real-IP", "203.0.113.7")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return body
}

func contactForm(challenge string) url.Values {
	return url.Values{
		"first-name":    {"Sarah"},
		"last-name":     {"Miller"},
		"email-address": {"sarah@example.com"},
		"message":       {"I would like to schedule a lymphatic massage."},
		"altcha":        {challenge},
	}
}

func TestChallengeEndpoint(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/challenge", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "no-cache") {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}

	var ch altcha.Challenge
	if err := json.Unmarshal(rec.Body.Bytes(), &ch); err != nil {
		t.Fatalf("challenge is not JSON: %v", err)
	}
	if ch.Algorithm != altcha.Algorithm {
		t.Errorf("algorithm = %q, want %q", ch.Algorithm, altcha.Algorithm)
	}
	if ch.Challenge == "" || ch.Salt == "" || ch.Signature == "" {
		t.Errorf("incomplete challenge: %+v", ch)
	}
}

func TestContactSubmission(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/api/v1/forms/contact", contactForm(env.solveChallenge(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	body := decodeResponse(t, rec)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if id, _ := body["submissionId"].(string); id == "" {
		t.Error("submissionId missing from response")
	}

	contacts := env.store.Contacts()
	if len(contacts) != 1 {
		t.Fatalf("stored contacts = %d, want 1", len(contacts))
	}
	if contacts[0].Email != "sarah@example.com" || contacts[0].FirstName != "Sarah" {
		t.Errorf("stored submission = %+v", contacts[0])
	}

	env.notifier.wait(t)
	env.notifier.mu.Lock()
	defer env.notifier.mu.Unlock()
	if len(env.notifier.contacts) != 1 {
		t.Errorf("contact notifications = %d, want 1", len(env.notifier.contacts))
	}
}

func TestContactHoneypot(t *testing.T) {
	env := newTestEnv(t)

	form := contactForm(env.solveChallenge(t))
	form.Set("bot-field", "gotcha")

	rec := env.postForm("/api/v1/forms/contact", form)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	body := decodeResponse(t, rec)
	if body["error"] != core.GenericRejection {
		t.Errorf("error = %v, want the generic message", body["error"])
	}
	if len(env.store.Contacts()) != 0 {
		t.Error("honeypot submission must not be stored")
	}
}

func TestContactMissingChallenge(t *testing.T) {
	env := newTestEnv(t)

	form := contactForm("")
	form.Del("altcha")

	rec := env.postForm("/api/v1/forms/contact", form)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["error"] != core.ChallengeMissing {
		t.Errorf("error = %v, want challenge-missing message", body["error"])
	}
}

func TestContactReplayedChallenge(t *testing.T) {
	env := newTestEnv(t)
	challenge := env.solveChallenge(t)

	if rec := env.postForm("/api/v1/forms/contact", contactForm(challenge)); rec.Code != http.StatusOK {
		t.Fatalf("first submission failed: %d", rec.Code)
	}

	rec := env.postForm("/api/v1/forms/contact", contactForm(challenge))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for replayed challenge", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["error"] != core.ChallengeFailed {
		t.Errorf("error = %v, want challenge-failed message", body["error"])
	}
}

func TestContactRateLimit(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		rec := env.postForm("/api/v1/forms/contact", contactForm(env.solveChallenge(t)))
		if rec.Code != http.StatusOK {
			t.Fatalf("submission %d: status = %d, body %s", i+1, rec.Code, rec.Body.String())
		}
	}

	rec := env.postForm("/api/v1/forms/contact", contactForm(env.solveChallenge(t)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("fourth submission: status = %d, want 400", rec.Code)
	}
	body := decodeResponse(t, rec)
	if body["error"] != core.RateLimited {
		t.Errorf("error = %v, want rate-limited message", body["error"])
	}
	if len(env.store.Contacts()) != 3 {
		t.Errorf("stored contacts = %d, want 3", len(env.store.Contacts()))
	}
}

func TestContactValidation(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing names", func(t *testing.T) {
		form := contactForm(env.solveChallenge(t))
		form.Del("first-name")

		rec := env.postForm("/api/v1/forms/contact", form)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		form := contactForm(env.solveChallenge(t))
		form.Set("email-address", "not-an-email")

		rec := env.postForm("/api/v1/forms/contact", form)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestContactNewsletterOptIn(t *testing.T) {
	env := newTestEnv(t)

	form := contactForm(env.solveChallenge(t))
	form.Set("newsletter-subscribe", "on")

	if rec := env.postForm("/api/v1/forms/contact", form); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	sub, ok := env.store.Subscriber("sarah@example.com")
	if !ok || !sub.IsSubscribed {
		t.Fatalf("newsletter opt-in not recorded (ok=%v, sub=%+v)", ok, sub)
	}
}

func TestIntakeSubmission(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{
		"first-name": {"Maria"},
		"last-name":  {"Keller"},
		"email":      {"maria@example.com"},
		"phone-day":  {"608-555-0101"},
		"hear-about": {"friend"},
		"reason":     {"medical"},
		"reason-for-seeking-mld-medical-description": {"Post-surgery swelling in my left arm."},
		"medical-conditions-cardiovascular-dizziness": {"on"},
		"medical-conditions-cardiovascular-palpitations": {"on"},
		"medical-conditions-general-na":                  {"on"},
		"medical-conditions-skin-other-specify":          {"mild eczema on forearms"},
		"altcha": {env.solveChallenge(t)},
	}

	rec := env.postForm("/api/v1/forms/intake", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	intakes := env.store.Intakes()
	if len(intakes) != 1 {
		t.Fatalf("stored intakes = %d, want 1", len(intakes))
	}
	sub := intakes[0]
	if sub.Email != "maria@example.com" || sub.PhoneDaytime != "608-555-0101" {
		t.Errorf("stored intake = %+v", sub)
	}
	if sub.ReasonForVisit.Purpose != "medical" {
		t.Errorf("purpose = %q", sub.ReasonForVisit.Purpose)
	}
	if got := len(sub.Conditions["cardiovascular"]); got != 2 {
		t.Errorf("cardiovascular conditions = %v", sub.Conditions["cardiovascular"])
	}
	if got := sub.Conditions["general"]; len(got) != 1 || got[0] != "na" {
		t.Errorf("general conditions = %v", got)
	}
	if sub.ConditionNotes["skin"] != "mild eczema on forearms" {
		t.Errorf("skin note = %q", sub.ConditionNotes["skin"])
	}
}

func TestSubscribe(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{
		"email":  {"new@example.com"},
		"altcha": {env.solveChallenge(t)},
	}
	rec := env.postForm("/api/v1/forms/subscribe", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	sub, ok := env.store.Subscriber("new@example.com")
	if !ok || !sub.IsSubscribed {
		t.Fatalf("subscriber not recorded (ok=%v)", ok)
	}

	env.notifier.wait(t)
	env.notifier.mu.Lock()
	defer env.notifier.mu.Unlock()
	if len(env.notifier.joined) != 1 {
		t.Errorf("join notifications = %d, want 1", len(env.notifier.joined))
	}
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{
		"email":  {"not an email"},
		"altcha": {env.solveChallenge(t)},
	}
	rec := env.postForm("/api/v1/forms/subscribe", form)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUnsubscribeLink(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{
		"email":  {"leaving@example.com"},
		"altcha": {env.solveChallenge(t)},
	}
	if rec := env.postForm("/api/v1/forms/subscribe", form); rec.Code != http.StatusOK {
		t.Fatalf("subscribe failed: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/forms/unsubscribe/leaving@example.com", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasSuffix(loc, "/unsubscribed") {
		t.Errorf("Location = %q, want the /unsubscribed page", loc)
	}

	sub, ok := env.store.Subscriber("leaving@example.com")
	if !ok || sub.IsSubscribed {
		t.Fatalf("subscriber still subscribed after unsubscribe (ok=%v, sub=%+v)", ok, sub)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
