package sentiment

// Language selects which lexicon/analyzer path Extract dispatches to.
type Language string

const (
	English    Language = "en"
	Vietnamese Language = "vi"
)

// Extract runs the sentiment extractor for the given language,
// matching spec.md §4.1's single entrypoint over both supported
// languages. Unknown languages fall back to English.
func Extract(lang Language, text string) Result {
	switch lang {
	case Vietnamese:
		return AnalyzeVietnamese(text)
	default:
		return Default().AnalyzeEnglish(text)
	}
}
