package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultStemMaxLength bounds the length of a generated filename stem in runes.
	DefaultStemMaxLength = 60
	// DefaultFallbackStem is used when a caption sanitizes to nothing.
	DefaultFallbackStem = "renamed_screenshot"

	stemSeparator = "_"
)

// fillerPattern matches a chatty lead-in models put before the answer, after
// optional whitespace or markdown/quote marks. The core phrases end at a
// colon, whitespace, or the end of the text, so "Outputs" survives. The longer
// variants only count when a colon follows, so "The title sequence" survives.
var fillerPattern = regexp.MustCompile("(?i)^[\\s*\"'`>#]*(?:" +
	`(?:here is|the title is|output|filename|title)(?:\s*:\s*|\s+|[^\p{L}\p{N}]*$)` +
	`|(?:here's|the filename is|the title)\s*:\s*)`)

// nonStemChars matches everything that is not a word character, whitespace, or hyphen.
var nonStemChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]+`)

// separatorRun matches runs of whitespace, hyphens, and underscores.
var separatorRun = regexp.MustCompile(`[\s_-]+`)

// Stemmer turns free caption text into a filesystem-safe filename stem.
// The zero value uses the default length bound and fallback.
type Stemmer struct {
	MaxLength int
	Fallback  string
}

// NewStemmer returns a Stemmer with the supplied bounds. Non-positive lengths
// and empty fallbacks select the defaults.
func NewStemmer(maxLength int, fallback string) Stemmer {
	return Stemmer{MaxLength: maxLength, Fallback: strings.TrimSpace(fallback)}
}

// SanitizeStem applies the default Stemmer to text.
func SanitizeStem(text string) string {
	return Stemmer{}.Stem(text)
}

// Stem converts text to a lowercase, separator-joined stem. It never returns
// an empty string and is stable: Stem(Stem(x)) == Stem(x).
func (s Stemmer) Stem(text string) string {
	text = stripFiller(text)

	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(strings.ReplaceAll(text, "`", ""))

	text = foldMarks(text)
	text = foldMarks(cases.Lower(language.Und).String(text))
	text = nonStemChars.ReplaceAllString(text, "")
	text = separatorRun.ReplaceAllString(text, stemSeparator)
	text = strings.Trim(text, stemSeparator)

	text = truncateRunes(text, s.maxLength())
	text = strings.TrimRight(text, stemSeparator)

	if text == "" || fillerOnly(text) {
		return s.fallback()
	}
	return text
}

func (s Stemmer) maxLength() int {
	if s.MaxLength <= 0 {
		return DefaultStemMaxLength
	}
	return s.MaxLength
}

func (s Stemmer) fallback() string {
	if s.Fallback == "" {
		return DefaultFallbackStem
	}
	return s.Fallback
}

// IsStem reports whether value already satisfies the stem character rules:
// lowercase letters and digits joined by single separators.
func IsStem(value string) bool {
	if value == "" || strings.HasPrefix(value, stemSeparator) || strings.HasSuffix(value, stemSeparator) {
		return false
	}
	if strings.Contains(value, stemSeparator+stemSeparator) {
		return false
	}
	for _, r := range value {
		switch {
		case r == '_':
		case unicode.IsDigit(r):
		case unicode.IsLetter(r) && !unicode.IsUpper(r):
		default:
			return false
		}
	}
	return true
}

// stripFiller removes leading filler phrases. Several can be stacked
// ("Here is the title: ..."), so stripping repeats until nothing matches.
// A reply that is only filler strips to nothing.
func stripFiller(text string) string {
	for {
		loc := fillerPattern.FindStringIndex(text)
		if loc == nil || loc[1] == 0 {
			return text
		}
		text = text[loc[1]:]
	}
}

// fillerOnly reports whether a finished stem consists of filler words alone,
// as when the phrase was wrapped in characters the pattern does not skip.
func fillerOnly(stem string) bool {
	return strings.TrimSpace(stripFiller(strings.ReplaceAll(stem, stemSeparator, " "))) == ""
}

// foldMarks decomposes text and drops combining marks so accented letters
// collapse to their base form.
func foldMarks(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return folded
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	count := 0
	for idx := range text {
		if count == limit {
			return text[:idx]
		}
		count++
	}
	return text
}
