package pipeline

import "fmt"

// demoLines returns placeholder narration for jobs whose audio produced no
// usable speech. Pure function of the language code so reruns are
// deterministic.
func demoLines(langCode string) []string {
	if lines, ok := cannedLines[langCode]; ok {
		return lines
	}
	lines := make([]string, len(cannedLines["en"]))
	copy(lines, cannedLines["en"])
	lines[0] = fmt.Sprintf("%s [%s]", lines[0], langCode)
	return lines
}

// cannedLines holds the demo narration per language. Languages without an
// entry reuse the English lines tagged with the code.
var cannedLines = map[string][]string{
	"en": {
		"Welcome to this video.",
		"The original audio could not be transcribed.",
		"This is a demonstration of the dubbing pipeline.",
	},
	"es": {
		"Bienvenido a este video.",
		"El audio original no pudo ser transcrito.",
		"Esta es una demostración del proceso de doblaje.",
	},
	"fr": {
		"Bienvenue dans cette vidéo.",
		"L'audio original n'a pas pu être transcrit.",
		"Ceci est une démonstration du doublage automatique.",
	},
	"de": {
		"Willkommen zu diesem Video.",
		"Der Originalton konnte nicht transkribiert werden.",
		"Dies ist eine Demonstration der automatischen Synchronisation.",
	},
	"hi": {
		"इस वीडियो में आपका स्वागत है।",
		"मूल ऑडियो को लिखित रूप में नहीं बदला जा सका।",
		"यह डबिंग प्रणाली का एक प्रदर्शन है।",
	},
	"ta": {
		"இந்த வீடியோவிற்கு வரவேற்கிறோம்.",
		"அசல் ஒலியை எழுத்தாக்க முடியவில்லை.",
		"இது டப்பிங் அமைப்பின் செயல்விளக்கம்.",
	},
	"ja": {
		"このビデオへようこそ。",
		"元の音声は文字起こしできませんでした。",
		"これは吹き替え処理のデモンストレーションです。",
	},
	"zh": {
		"欢迎观看本视频。",
		"原始音频无法转录。",
		"这是配音流程的演示。",
	},
	"ar": {
		"مرحبا بكم في هذا الفيديو.",
		"تعذر تفريغ الصوت الأصلي.",
		"هذا عرض توضيحي لنظام الدبلجة.",
	},
	"pt": {
		"Bem-vindo a este vídeo.",
		"O áudio original não pôde ser transcrito.",
		"Esta é uma demonstração do processo de dublagem.",
	},
	"ru": {
		"Добро пожаловать в это видео.",
		"Исходный звук не удалось расшифровать.",
		"Это демонстрация системы дубляжа.",
	},
	"ko": {
		"이 영상에 오신 것을 환영합니다.",
		"원본 오디오를 전사할 수 없었습니다.",
		"이것은 더빙 파이프라인 시연입니다.",
	},
}
