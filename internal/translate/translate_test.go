package translate_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dubber/internal/services"
	"dubber/internal/translate"
)

func googleHandler(reply func(q string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		fmt.Fprintf(w, `[[["%s","%s",null]],null,"en"]`, reply(q), q)
	}
}

func newTranslator(t *testing.T, google, mymemory, libre http.Handler) *translate.Translator {
	t.Helper()
	mux := http.NewServeMux()
	if google != nil {
		mux.Handle("/google", google)
	}
	if mymemory != nil {
		mux.Handle("/mymemory", mymemory)
	}
	if libre != nil {
		mux.Handle("/libre/translate", libre)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return translate.New(nil, server.URL+"/libre", 2*time.Second,
		translate.WithEndpoints(server.URL+"/google", server.URL+"/mymemory", ""),
		translate.WithAttempts(1))
}

func TestTranslateUsesFirstProvider(t *testing.T) {
	translator := newTranslator(t,
		googleHandler(func(q string) string { return "hola mundo" }),
		nil, nil)

	result, err := translator.Translate(context.Background(), "hello world", "es", "en")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if result != "hola mundo" {
		t.Fatalf("unexpected result %q", result)
	}
}

func TestTranslateFallsBackWhenProviderEchoesInput(t *testing.T) {
	translator := newTranslator(t,
		googleHandler(func(q string) string { return q }),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"responseData":{"translatedText":"hola mundo"},"responseStatus":200}`)
		}),
		nil)

	result, err := translator.Translate(context.Background(), "hello world", "es", "en")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if result != "hola mundo" {
		t.Fatalf("expected fallback provider result, got %q", result)
	}
}

func TestTranslateFallsBackToLibreTranslate(t *testing.T) {
	translator := newTranslator(t,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota", http.StatusForbidden)
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"translatedText":"hola mundo"}`)
		}))

	result, err := translator.Translate(context.Background(), "hello world", "es", "en")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if result != "hola mundo" {
		t.Fatalf("unexpected result %q", result)
	}
}

func TestTranslateClauseRetry(t *testing.T) {
	// Whole-sentence requests echo the input; individual clauses translate.
	translator := newTranslator(t,
		googleHandler(func(q string) string {
			if strings.Contains(q, ",") {
				return q
			}
			switch strings.TrimSpace(q) {
			case "good morning":
				return "buenos dias"
			case "good night":
				return "buenas noches"
			}
			return q
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))

	result, err := translator.Translate(context.Background(), "good morning, good night", "es", "en")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if result != "buenos dias, buenas noches" {
		t.Fatalf("unexpected clause result %q", result)
	}
}

func TestTranslateReturnsNoResultWhenChainExhausted(t *testing.T) {
	translator := newTranslator(t,
		googleHandler(func(q string) string { return q }),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))

	_, err := translator.Translate(context.Background(), "hello", "es", "en")
	if !errors.Is(err, services.ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
	if !services.Degradable(err) {
		t.Fatal("translation exhaustion must be degradable")
	}
}

func TestTranslateEmptyInput(t *testing.T) {
	translator := newTranslator(t, nil, nil, nil)
	result, err := translator.Translate(context.Background(), "   ", "es", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "" {
		t.Fatalf("expected empty result, got %q", result)
	}
}

func TestTranslateLinesKeepsAlignment(t *testing.T) {
	translator := newTranslator(t,
		googleHandler(func(q string) string {
			if q == "hello" {
				return "hola"
			}
			return q
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))

	lines, err := translator.TranslateLines(context.Background(), []string{"hello", "untranslatable"}, "es", "en")
	if err != nil {
		t.Fatalf("translate lines failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "hola" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if lines[1] != "untranslatable" {
		t.Fatal("failed line must keep original text")
	}
}

func TestTranslateSendsDetectedSourceToMyMemory(t *testing.T) {
	var langpair string
	translator := newTranslator(t,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			langpair = r.URL.Query().Get("langpair")
			fmt.Fprint(w, `{"responseData":{"translatedText":"bonjour"},"responseStatus":200}`)
		}),
		nil)

	result, err := translator.Translate(context.Background(), "guten morgen", "fr", "de")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if result != "bonjour" {
		t.Fatalf("unexpected result %q", result)
	}
	if langpair != "de|fr" {
		t.Fatalf("langpair = %q, want de|fr", langpair)
	}
}

func TestTranslateUnknownSourceDefaultsToEnglish(t *testing.T) {
	var langpair string
	translator := newTranslator(t,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			langpair = r.URL.Query().Get("langpair")
			fmt.Fprint(w, `{"responseData":{"translatedText":"hola"},"responseStatus":200}`)
		}),
		nil)

	if _, err := translator.Translate(context.Background(), "hello", "es", "auto"); err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if langpair != "en|es" {
		t.Fatalf("langpair = %q, want en|es", langpair)
	}
}

func TestTranslateClauseRetryKeepsSeparators(t *testing.T) {
	// Whole-sentence requests echo the input; individual clauses translate.
	translator := newTranslator(t,
		googleHandler(func(q string) string {
			if strings.ContainsAny(q, ";:") {
				return q
			}
			switch strings.TrimSpace(q) {
			case "one":
				return "uno"
			case "two":
				return "dos"
			case "three":
				return "tres"
			}
			return q
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))

	result, err := translator.Translate(context.Background(), "one; two: three", "es", "en")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if result != "uno; dos: tres" {
		t.Fatalf("separators not preserved: %q", result)
	}
}

func TestSplitClauses(t *testing.T) {
	clauses := translate.SplitClauses("one, two; three - four  five")
	want := []string{"one", "two", "three", "four", "five"}
	if len(clauses) != len(want) {
		t.Fatalf("expected %d clauses, got %v", len(want), clauses)
	}
	for i, clause := range clauses {
		if clause != want[i] {
			t.Fatalf("clause %d = %q, want %q", i, clause, want[i])
		}
	}
}
