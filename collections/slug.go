package collections

import (
	"strings"
	"unicode"

	"github.com/artpar/contentgate/core/schema"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify converts a title to a URL-safe slug: lower case ASCII letters
// and digits separated by single hyphens. Accents are folded
// ("Crème brûlée" becomes "creme-brulee").
func Slugify(s string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.ToLower(strings.TrimSpace(s)),
	)
	if err != nil {
		folded = strings.ToLower(s)
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
		default:
			pendingDash = true
		}
	}
	return b.String()
}

// SlugFrom returns a BeforeValidate hook that formats a provided slug and
// derives a blank one from another text field. On update an absent slug
// stays absent.
func SlugFrom(source string) schema.FieldHook {
	return func(args schema.FieldHookArgs) (any, error) {
		if s, ok := args.Value.(string); ok && strings.TrimSpace(s) != "" {
			return Slugify(s), nil
		}
		if args.Operation == schema.OperationUpdate && args.Value == nil {
			return nil, nil
		}

		title, _ := args.Data[source].(string)
		if title == "" && args.Original != nil {
			title, _ = args.Original[source].(string)
		}
		if slug := Slugify(title); slug != "" {
			return slug, nil
		}
		return args.Value, nil
	}
}
