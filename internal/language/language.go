package language

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultCode is the provider code used when a target language has no
// provider-specific mapping. Providers that cannot speak the requested
// language degrade to English-compatible output instead of erroring.
const DefaultCode = "en"

// supported is the catalog of target language codes accepted at job creation.
var supported = []string{
	// Global set
	"en", "hi", "fr", "es", "de", "ta", "ja", "ko", "zh", "ar",
	"pt", "it", "ru", "tr", "fa", "sw", "id", "th", "vi", "ms",
	"nl", "pl", "el", "he", "sv", "no", "da", "fi", "ro", "hu",
	// Indian languages
	"as", "bn", "gu", "kn", "ml", "mr", "ne", "or", "pa", "sa",
	"sd", "te", "ur",
	// Additional
	"uk", "cs", "bg", "hr", "sr", "sk", "sl", "et", "lv", "lt",
	"is", "ga", "ca", "gl", "eu", "sq", "mk", "az", "kk", "uz",
	"hy", "ka", "mn", "km", "lo", "my", "si", "am", "yo", "ha",
	"zu", "xh", "st", "so", "mg", "mt", "cy", "tl", "jv", "su",
}

// providerCodes maps catalog codes to the code the speech and translation
// providers expect where they differ.
var providerCodes = map[string]string{
	"zh": "zh-CN",
}

// providerSupported is the set of codes the TTS providers can actually speak.
// Codes outside this set fall back to DefaultCode.
var providerSupported = map[string]struct{}{
	"en": {}, "hi": {}, "fr": {}, "es": {}, "de": {}, "ta": {}, "ja": {},
	"ko": {}, "zh-CN": {}, "ar": {}, "pt": {}, "it": {}, "ru": {}, "tr": {},
	"fa": {}, "sw": {}, "id": {}, "th": {}, "vi": {}, "ms": {}, "nl": {},
	"pl": {}, "el": {}, "he": {}, "sv": {}, "da": {}, "fi": {}, "ro": {},
	"hu": {}, "bn": {}, "gu": {}, "kn": {}, "ml": {}, "mr": {}, "ne": {},
	"or": {}, "pa": {}, "te": {}, "uk": {}, "cs": {}, "bg": {}, "hr": {},
	"sr": {}, "sk": {}, "sl": {}, "et": {}, "lv": {}, "lt": {}, "is": {},
	"ca": {}, "sq": {}, "mk": {}, "az": {}, "kk": {}, "hy": {}, "ka": {},
	"km": {}, "lo": {}, "my": {}, "si": {}, "am": {}, "cy": {}, "tl": {},
}

var supportedSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(supported))
	for _, code := range supported {
		set[code] = struct{}{}
	}
	return set
}()

var namer = display.English.Languages()

// Supported reports whether a target language code is in the catalog.
func Supported(code string) bool {
	_, ok := supportedSet[normalize(code)]
	return ok
}

// Codes returns the catalog codes in declaration order.
func Codes() []string {
	cp := make([]string, len(supported))
	copy(cp, supported)
	return cp
}

// Label returns a human-readable English name for a catalog code, falling
// back to the code itself when the tag cannot be parsed.
func Label(code string) string {
	normalized := normalize(code)
	if normalized == "" {
		return code
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		return normalized
	}
	if name := namer.Name(tag); name != "" && !strings.EqualFold(name, "und") {
		return name
	}
	return normalized
}

// ProviderCode maps a catalog code to the provider-facing code, degrading to
// DefaultCode for languages the speech providers cannot handle.
func ProviderCode(code string) string {
	normalized := normalize(code)
	if normalized == "" {
		return DefaultCode
	}
	if mapped, ok := providerCodes[normalized]; ok {
		normalized = mapped
	}
	if _, ok := providerSupported[normalized]; !ok {
		return DefaultCode
	}
	return normalized
}

// ToISO2 reduces a provider-reported language code to its two-letter base
// ("zh-CN" -> "zh", "eng" -> "en"). Unrecognized input returns "".
func ToISO2(code string) string {
	normalized := normalize(code)
	if normalized == "" {
		return ""
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		if len(normalized) >= 2 {
			return normalized[:2]
		}
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}

// Option is one catalog entry for UI consumption.
type Option struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Options returns the catalog sorted by label for dropdown ordering.
func Options() []Option {
	options := make([]Option, 0, len(supported))
	for _, code := range supported {
		options = append(options, Option{Code: code, Label: Label(code)})
	}
	sort.Slice(options, func(i, j int) bool {
		return strings.ToLower(options[i].Label) < strings.ToLower(options[j].Label)
	})
	return options
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
