package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lsmadison/clinic-forms/internal/config"
	"github.com/lsmadison/clinic-forms/internal/utils"
)

// blockedPhrases trip a message on a single match. These are the signatures
// that never appear in legitimate clinic inquiries.
var blockedPhrases = []string{
	"free money",
	"casino",
	"viagra",
	"lottery winner",
	"crypto investment",
	"forex trading",
	"seo services",
	"payday loan",
	"work from home opportunity",
}

// promotionalKeywords require several distinct matches before a message is
// flagged; individually they show up in real messages too often.
var promotionalKeywords = []string{
	"click here",
	"limited time",
	"act now",
	"urgent",
	"make money",
	"guaranteed",
	"risk free",
	"no cost",
	"special offer",
	"buy now",
	"order now",
}

const punctuationChars = "!@#$%^&*()_+=[]{}|\\:\";'<>?,./~`"

var urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+|\b[a-z0-9.-]+\.[a-z]{2,}\b)`)

// ContentAnalyzer scores free-text form fields against pattern and keyword
// heuristics. All thresholds come from configuration.
type ContentAnalyzer struct {
	cfg           config.SpamConfig
	tp            *utils.TextProcessor
	gibberish     *regexp.Regexp
	nameGibberish *regexp.Regexp
}

// NewContentAnalyzer creates a content analyzer with the configured thresholds
func NewContentAnalyzer(cfg config.SpamConfig, tp *utils.TextProcessor) *ContentAnalyzer {
	return &ContentAnalyzer{
		cfg:           cfg,
		tp:            tp,
		gibberish:     regexp.MustCompile(fmt.Sprintf(`^[A-Za-z0-9]{%d,}$`, cfg.GibberishMinLength)),
		nameGibberish: regexp.MustCompile(fmt.Sprintf(`^[A-Za-z0-9]{%d,}$`, cfg.NameGibberishMinLength)),
	}
}

// AnalyzeMessage runs the full heuristic set over a message body. Checks are
// independent; the first match decides the surfaced reason.
func (a *ContentAnalyzer) AnalyzeMessage(text string) Verdict {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return NotSpam
	}
	content := a.tp.FoldForMatching(trimmed)

	for _, phrase := range blockedPhrases {
		if strings.Contains(content, phrase) {
			return Verdict{IsSpam: true, Reason: "Message contains blocked content."}
		}
	}

	if strings.Count(content, "http") > a.cfg.MaxHTTPMentions {
		return Verdict{IsSpam: true, Reason: "Message contains too many links."}
	}

	if a.gibberish.MatchString(trimmed) {
		return Verdict{IsSpam: true, Reason: "Message appears to be gibberish."}
	}

	if hasRepeatedRun(content, a.cfg.RepeatedCharRun) {
		return Verdict{IsSpam: true, Reason: "Message contains suspicious repeated characters."}
	}

	if punctuationRatio(content) > a.cfg.PunctuationRatio {
		return Verdict{IsSpam: true, Reason: "Message contains too many special characters."}
	}

	if len(urlPattern.FindAllString(content, -1)) > a.cfg.MaxURLs {
		return Verdict{IsSpam: true, Reason: "Message contains too many links."}
	}

	if a.promoKeywordCount(content) >= a.cfg.PromoKeywordThreshold {
		return Verdict{IsSpam: true, Reason: "Message appears to be promotional spam."}
	}

	return NotSpam
}

// AnalyzeName checks a name field. Names only get the gibberish check; URLs
// and keywords are message-body concerns.
func (a *ContentAnalyzer) AnalyzeName(text string) Verdict {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return NotSpam
	}
	if a.nameGibberish.MatchString(trimmed) {
		return Verdict{IsSpam: true, Reason: "Name appears to be invalid."}
	}
	return NotSpam
}

// promoKeywordCount counts distinct promotional keywords present in content
func (a *ContentAnalyzer) promoKeywordCount(content string) int {
	count := 0
	for _, keyword := range promotionalKeywords {
		if strings.Contains(content, keyword) {
			count++
		}
	}
	return count
}

// hasRepeatedRun reports whether any rune repeats at least runLength times
// consecutively. RE2 has no backreferences, so this is a plain scan.
func hasRepeatedRun(content string, runLength int) bool {
	if runLength <= 0 {
		return false
	}
	var prev rune
	run := 0
	for _, r := range content {
		if r == prev {
			run++
			if run >= runLength {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

// punctuationRatio returns the share of punctuation characters in content
func punctuationRatio(content string) float64 {
	if len(content) == 0 {
		return 0
	}
	count := 0
	for _, r := range content {
		if strings.ContainsRune(punctuationChars, r) {
			count++
		}
	}
	return float64(count) / float64(len([]rune(content)))
}
