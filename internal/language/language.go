package language

import (
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Undetermined is the ISO 639-2 code for an unknown language.
const Undetermined = "und"

// ISO3 converts a BCP 47 tag or ISO 639 code ("en", "en-US", "eng") to its
// three-letter ISO 639-2 form. Empty input yields Undetermined.
func ISO3(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Undetermined, nil
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return "", fmt.Errorf("language %q: %w", code, err)
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return "", fmt.Errorf("language %q: unrecognized", code)
	}
	return base.ISO3(), nil
}

// DisplayName returns the English name for code, or the trimmed input when it
// does not parse.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Unknown"
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	base, _ := tag.Base()
	if name := display.English.Languages().Name(base); name != "" {
		return name
	}
	return strings.ToUpper(code)
}
