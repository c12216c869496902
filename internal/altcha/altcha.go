// Package altcha implements the ALTCHA proof-of-work challenge scheme used to
// gate public form submissions. The server issues a salted SHA-256 puzzle
// signed with an HMAC key; solutions verify statelessly against the
// signature, so no issued challenge needs to be stored. Solved challenges are
// additionally remembered for a short TTL so a solution cannot be replayed
// within its validity window.
package altcha

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lsmadison/clinic-forms/internal/config"
	"go.uber.org/zap"
)

// Algorithm is the only hash algorithm this verifier issues or accepts
const Algorithm = "SHA-256"

const saltBytes = 12

var (
	// ErrVerificationFailed covers every invalid solution: tampered
	// parameters, wrong hash, expired salt, or a replayed challenge. The
	// detail stays in logs; callers surface a single generic message.
	ErrVerificationFailed = errors.New("challenge verification failed")
)

// Challenge is the puzzle handed to the client. The client brute-forces the
// secret number whose salted SHA-256 hash equals Challenge.
type Challenge struct {
	Algorithm string `json:"algorithm"`
	Challenge string `json:"challenge"`
	MaxNumber int64  `json:"maxnumber"`
	Salt      string `json:"salt"`
	Signature string `json:"signature"`
}

// Payload is the client's claimed solution plus the original challenge
// parameters, submitted as base64-encoded JSON
type Payload struct {
	Algorithm string `json:"algorithm"`
	Challenge string `json:"challenge"`
	Number    int64  `json:"number"`
	Salt      string `json:"salt"`
	Signature string `json:"signature"`
	Took      int64  `json:"took,omitempty"`
}

// Verifier issues challenges and verifies solutions with a server-held HMAC
// key. Safe for concurrent use.
type Verifier struct {
	key       []byte
	maxNumber int64
	expiry    time.Duration
	replayTTL time.Duration
	logger    *zap.Logger

	mu   sync.Mutex
	seen map[string]time.Time

	now func() time.Time
}

// NewVerifier creates a challenge verifier from configuration
func NewVerifier(cfg config.ChallengeConfig, logger *zap.Logger) *Verifier {
	return &Verifier{
		key:       []byte(cfg.HMACKey),
		maxNumber: int64(cfg.MaxNumber),
		expiry:    cfg.Expiry,
		replayTTL: cfg.ReplayTTL,
		logger:    logger,
		seen:      make(map[string]time.Time),
		now:       time.Now,
	}
}

// CreateChallenge produces a new signed challenge. The salt carries the
// expiry so verification needs no server-side record of issuance.
func (v *Verifier) CreateChallenge() (*Challenge, error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	expires := v.now().Add(v.expiry).Unix()
	salt := fmt.Sprintf("%s?expires=%d", hex.EncodeToString(raw), expires)

	n, err := rand.Int(rand.Reader, big.NewInt(v.maxNumber+1))
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret number: %w", err)
	}

	challenge := hashHex(salt, n.Int64())

	return &Challenge{
		Algorithm: Algorithm,
		Challenge: challenge,
		MaxNumber: v.maxNumber,
		Salt:      salt,
		Signature: v.sign(challenge),
	}, nil
}

// VerifyPayload checks a base64-encoded solution payload. A nil return means
// the solution was valid and is now consumed; submitting it again within the
// replay TTL fails.
func (v *Verifier) VerifyPayload(encoded string) (err error) {
	// Whatever a hostile payload manages to trigger must surface as a
	// verification failure, never a crash.
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("Panic during challenge verification", zap.Any("panic", r))
			err = ErrVerificationFailed
		}
	}()

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return fmt.Errorf("%w: undecodable payload", ErrVerificationFailed)
	}

	var payload Payload
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return fmt.Errorf("%w: malformed payload", ErrVerificationFailed)
	}

	if payload.Algorithm != Algorithm {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrVerificationFailed, payload.Algorithm)
	}

	if payload.Number < 0 || payload.Number > v.maxNumber {
		return fmt.Errorf("%w: number outside difficulty bound", ErrVerificationFailed)
	}

	if expired, err := saltExpired(payload.Salt, v.now()); err != nil || expired {
		return fmt.Errorf("%w: challenge expired", ErrVerificationFailed)
	}

	if hashHex(payload.Salt, payload.Number) != payload.Challenge {
		return fmt.Errorf("%w: hash mismatch", ErrVerificationFailed)
	}

	// The signature proves this exact challenge was issued by us. Compare in
	// constant time.
	if !hmac.Equal([]byte(v.sign(payload.Challenge)), []byte(payload.Signature)) {
		return fmt.Errorf("%w: signature mismatch", ErrVerificationFailed)
	}

	if !v.markUsed(payload.Challenge) {
		return fmt.Errorf("%w: solution replayed", ErrVerificationFailed)
	}

	return nil
}

// Solve brute-forces a challenge and returns the encoded payload. Used by
// tests and the spam-check tool; real clients solve in the browser.
func Solve(ch *Challenge) (string, error) {
	for n := int64(0); n <= ch.MaxNumber; n++ {
		if hashHex(ch.Salt, n) == ch.Challenge {
			payload := Payload{
				Algorithm: ch.Algorithm,
				Challenge: ch.Challenge,
				Number:    n,
				Salt:      ch.Salt,
				Signature: ch.Signature,
			}
			data, err := json.Marshal(payload)
			if err != nil {
				return "", fmt.Errorf("failed to encode payload: %w", err)
			}
			return base64.StdEncoding.EncodeToString(data), nil
		}
	}
	return "", errors.New("no solution within difficulty bound")
}

// markUsed records a solved challenge, reporting false if it was already
// used. Stale records are purged on the way through.
func (v *Verifier) markUsed(challenge string) bool {
	now := v.now()

	v.mu.Lock()
	defer v.mu.Unlock()

	for key, expiresAt := range v.seen {
		if now.After(expiresAt) {
			delete(v.seen, key)
		}
	}

	if _, used := v.seen[challenge]; used {
		return false
	}
	v.seen[challenge] = now.Add(v.replayTTL)
	return true
}

// sign computes the hex HMAC-SHA256 of the challenge hash with the server key
func (v *Verifier) sign(challenge string) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(challenge))
	return hex.EncodeToString(mac.Sum(nil))
}

// hashHex computes the challenge hash for a salt and candidate number
func hashHex(salt string, number int64) string {
	sum := sha256.Sum256([]byte(salt + strconv.FormatInt(number, 10)))
	return hex.EncodeToString(sum[:])
}

// saltExpired parses the expires parameter embedded in the salt. A salt
// without a parseable expiry is treated as expired.
func saltExpired(salt string, now time.Time) (bool, error) {
	_, query, found := strings.Cut(salt, "?")
	if !found {
		return true, errors.New("salt carries no expiry")
	}
	for _, param := range strings.Split(query, "&") {
		if value, ok := strings.CutPrefix(param, "expires="); ok {
			unix, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return true, fmt.Errorf("unparseable expiry: %w", err)
			}
			return now.After(time.Unix(unix, 0)), nil
		}
	}
	return true, errors.New("salt carries no expiry")
}
