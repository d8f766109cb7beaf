package catalog

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify lowercases s, strips diacritics and joins the remaining words
// with single dashes: "Café Crème  Latte" becomes "cafe-creme-latte".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			dash = true
		}
	}
	return b.String()
}

// GenerateSKU builds "ABC-1F2E" from the initials of up to three words of
// name and a random suffix.
func GenerateSKU(name string) string {
	var prefix strings.Builder
	for _, w := range strings.Split(Slugify(name), "-") {
		if prefix.Len() == 3 {
			break
		}
		if w != "" {
			prefix.WriteByte(w[0])
		}
	}
	if prefix.Len() == 0 {
		prefix.WriteString("SKU")
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return strings.ToUpper(prefix.String() + "-" + suffix)
}
