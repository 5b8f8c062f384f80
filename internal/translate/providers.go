package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"dubber/internal/language"
)

const maxResponseBytes = 1 << 20

// sourceCode normalizes a detected source language for provider queries,
// returning fallback when detection produced nothing usable.
func sourceCode(source, fallback string) string {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" || source == "auto" {
		return fallback
	}
	if code := language.ToISO2(source); code != "" {
		return code
	}
	return fallback
}

// googleTranslate calls the unauthenticated gtx endpoint. The response is a
// nested JSON array whose first element holds translated chunks.
func (t *Translator) googleTranslate(ctx context.Context, text, target, source string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", sourceCode(source, "auto"))
	params.Set("tl", language.ProviderCode(target))
	params.Set("dt", "t")
	params.Set("q", text)

	body, err := t.get(ctx, t.googleURL+"?"+params.Encode())
	if err != nil {
		return "", err
	}

	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("google response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("google response: empty payload")
	}
	var chunks [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &chunks); err != nil {
		return "", fmt.Errorf("google response chunks: %w", err)
	}
	var builder strings.Builder
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		var piece string
		if err := json.Unmarshal(chunk[0], &piece); err != nil {
			continue
		}
		builder.WriteString(piece)
	}
	return builder.String(), nil
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus json.Number `json:"responseStatus"`
}

// myMemoryTranslate calls the MyMemory public API. MyMemory has no
// auto-detection, so an unknown source falls back to English.
func (t *Translator) myMemoryTranslate(ctx context.Context, text, target, source string) (string, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", sourceCode(source, "en")+"|"+language.ProviderCode(target))

	body, err := t.get(ctx, t.myMemoryURL+"?"+params.Encode())
	if err != nil {
		return "", err
	}

	var payload myMemoryResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("mymemory response: %w", err)
	}
	if status, err := payload.ResponseStatus.Int64(); err == nil && status != 0 && status != 200 {
		return "", fmt.Errorf("mymemory status %d", status)
	}
	result := payload.ResponseData.TranslatedText
	if strings.Contains(strings.ToUpper(result), "MYMEMORY WARNING") {
		return "", fmt.Errorf("mymemory quota exceeded")
	}
	return result, nil
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
}

// libreTranslate posts to a LibreTranslate instance.
func (t *Translator) libreTranslate(ctx context.Context, text, target, source string) (string, error) {
	if t.libreURL == "" {
		return "", fmt.Errorf("libretranslate not configured")
	}
	payload, err := json.Marshal(libreRequest{
		Q:      text,
		Source: sourceCode(source, "auto"),
		Target: language.ProviderCode(target),
		Format: "text",
	})
	if err != nil {
		return "", fmt.Errorf("libretranslate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.libreURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("libretranslate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := t.do(req)
	if err != nil {
		return "", err
	}
	var response libreResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("libretranslate response: %w", err)
	}
	return response.TranslatedText, nil
}

func (t *Translator) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return t.do(req)
}

func (t *Translator) do(req *http.Request) ([]byte, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
