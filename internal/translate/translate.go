package translate

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"dubber/internal/logging"
	"dubber/internal/services"
)

const (
	defaultAttempts    = 2
	defaultTimeout     = 10 * time.Second
	retryBackoff       = 500 * time.Millisecond
	defaultGoogleURL   = "https://translate.googleapis.com/translate_a/single"
	defaultMyMemoryURL = "https://api.mymemory.translated.net/get"
)

// clauseSplitter breaks a sentence at punctuation boundaries for the
// last-resort clause-by-clause pass. Runs of two or more spaces also count
// as boundaries.
var clauseSplitter = regexp.MustCompile(`[,;:\-\x{2013}\x{2014}]| {2,}`)

// Translator converts text between languages through a chain of free
// providers, falling back tier by tier until one produces a real
// translation.
type Translator struct {
	client      *http.Client
	logger      *slog.Logger
	attempts    int
	googleURL   string
	myMemoryURL string
	libreURL    string
}

// Option adjusts Translator construction.
type Option func(*Translator)

// WithHTTPClient overrides the HTTP client, for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Translator) {
		if client != nil {
			t.client = client
		}
	}
}

// WithEndpoints overrides provider URLs. Empty strings keep the default.
func WithEndpoints(googleURL, myMemoryURL, libreURL string) Option {
	return func(t *Translator) {
		if googleURL != "" {
			t.googleURL = googleURL
		}
		if myMemoryURL != "" {
			t.myMemoryURL = myMemoryURL
		}
		if libreURL != "" {
			t.libreURL = libreURL
		}
	}
}

// WithAttempts sets per-provider retry attempts.
func WithAttempts(attempts int) Option {
	return func(t *Translator) {
		if attempts > 0 {
			t.attempts = attempts
		}
	}
}

// New builds a Translator. libreURL points at a LibreTranslate instance and
// may be empty to disable that tier.
func New(logger *slog.Logger, libreURL string, timeout time.Duration, opts ...Option) *Translator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	translator := &Translator{
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
		attempts:    defaultAttempts,
		googleURL:   defaultGoogleURL,
		myMemoryURL: defaultMyMemoryURL,
		libreURL:    strings.TrimRight(strings.TrimSpace(libreURL), "/"),
	}
	for _, opt := range opts {
		opt(translator)
	}
	return translator
}

// Translate converts text to the target language. source is the detected
// source language and may be empty or "auto" when detection produced
// nothing. It walks the provider chain and finally retries clause by clause;
// when nothing produces a changed result it returns services.ErrNoResult.
func (t *Translator) Translate(ctx context.Context, text, target, source string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	if result, ok := t.translateChain(ctx, text, target, source); ok {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Providers sometimes echo long sentences untranslated but handle the
	// individual clauses fine, so retry piecewise before giving up.
	if result, ok := t.translateClauses(ctx, text, target, source); ok {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", services.Wrap(services.ErrNoResult, "translate", "chain", "all providers failed or returned the input unchanged", nil)
}

// TranslateLines translates each line independently, keeping the original
// line on failure so output stays aligned with input.
func (t *Translator) TranslateLines(ctx context.Context, lines []string, target, source string) ([]string, error) {
	translated := make([]string, len(lines))
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := t.Translate(ctx, line, target, source)
		if err != nil || result == "" {
			translated[i] = line
			continue
		}
		translated[i] = result
	}
	return translated, nil
}

func (t *Translator) translateChain(ctx context.Context, text, target, source string) (string, bool) {
	providers := []struct {
		name string
		call func(context.Context, string, string, string) (string, error)
	}{
		{"google", t.googleTranslate},
		{"mymemory", t.myMemoryTranslate},
		{"libretranslate", t.libreTranslate},
	}
	for _, provider := range providers {
		for attempt := 1; attempt <= t.attempts; attempt++ {
			if ctx.Err() != nil {
				return "", false
			}
			result, err := provider.call(ctx, text, target, source)
			if err != nil {
				t.logger.Debug("translation provider failed",
					logging.String("provider", provider.name),
					logging.Int("attempt", attempt),
					logging.Error(err))
				sleepContext(ctx, retryBackoff)
				continue
			}
			result = strings.TrimSpace(result)
			if result == "" || sameNormalized(result, text) {
				// Echoed input means the provider declined to translate.
				break
			}
			return result, true
		}
	}
	return "", false
}

func (t *Translator) translateClauses(ctx context.Context, text, target, source string) (string, bool) {
	clauses := splitClauses(text)
	if len(clauses) < 2 {
		return "", false
	}
	var builder strings.Builder
	anyChanged := false
	for i, clause := range clauses {
		result, ok := t.translateChain(ctx, clause.text, target, source)
		if !ok {
			result = clause.text
		} else {
			anyChanged = true
		}
		builder.WriteString(result)
		if i < len(clauses)-1 {
			builder.WriteString(clause.sep)
		}
	}
	if !anyChanged {
		return "", false
	}
	return builder.String(), true
}

// clause is one piece of a split sentence together with the separator that
// followed it in the source text, so reassembly preserves the original
// punctuation.
type clause struct {
	text string
	sep  string
}

func splitClauses(text string) []clause {
	matches := clauseSplitter.FindAllStringIndex(text, -1)
	clauses := make([]clause, 0, len(matches)+1)
	start := 0
	for _, match := range matches {
		piece := strings.TrimSpace(text[start:match[0]])
		sep := strings.TrimSpace(text[match[0]:match[1]])
		if sep == "" {
			// A run of spaces acts as a boundary with no punctuation.
			sep = " "
		} else {
			sep += " "
		}
		start = match[1]
		if piece == "" {
			continue
		}
		clauses = append(clauses, clause{text: piece, sep: sep})
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		clauses = append(clauses, clause{text: tail})
	}
	return clauses
}

// SplitClauses breaks text at punctuation boundaries, dropping empty pieces.
func SplitClauses(text string) []string {
	clauses := splitClauses(text)
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		parts = append(parts, c.text)
	}
	return parts
}

// sameNormalized compares text case-insensitively ignoring surrounding space
// and trailing sentence punctuation, so "Hello." echoed as "hello" still
// counts as a no-op.
func sameNormalized(a, b string) bool {
	return normalize(a) == normalize(b)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".!?…")
	return strings.Join(strings.Fields(s), " ")
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
