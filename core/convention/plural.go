package convention

import "strings"

// Pluralize returns the plural form of an English word.
// Case of the first letter is preserved.
func Pluralize(word string) string {
	if word == "" {
		return ""
	}

	lower := strings.ToLower(word)
	if uncountable[lower] {
		return word
	}
	if plural, ok := irregularPlurals[lower]; ok {
		return matchCase(word, plural)
	}

	switch {
	case hasAnySuffix(lower, "s", "x", "z", "ch", "sh"):
		return word + "es"
	case strings.HasSuffix(lower, "y") && len(lower) > 1 && !isVowel(rune(lower[len(lower)-2])):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(lower, "fe"):
		return word[:len(word)-2] + "ves"
	case strings.HasSuffix(lower, "f"):
		return word[:len(word)-1] + "ves"
	}

	return word + "s"
}

// Singularize returns the singular form of an English word.
// Inverse of Pluralize.
func Singularize(word string) string {
	if word == "" {
		return ""
	}

	lower := strings.ToLower(word)
	if uncountable[lower] {
		return word
	}
	for singular, plural := range irregularPlurals {
		if plural == lower {
			return matchCase(word, singular)
		}
	}

	switch {
	case strings.HasSuffix(lower, "ies"):
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(lower, "ves"):
		return word[:len(word)-3] + "f"
	case hasAnySuffix(lower, "ses", "xes", "zes", "ches", "shes"):
		return word[:len(word)-2]
	case strings.HasSuffix(lower, "s") && !strings.HasSuffix(lower, "ss"):
		return word[:len(word)-1]
	}

	return word
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// matchCase capitalizes replacement when word starts with an upper case letter.
func matchCase(word, replacement string) string {
	if word[0] >= 'A' && word[0] <= 'Z' {
		return strings.ToUpper(replacement[:1]) + replacement[1:]
	}
	return replacement
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiouAEIOU", r)
}

// Words used the same way in singular and plural. Collection slugs like
// "media" read better unchanged.
var uncountable = map[string]bool{
	"media":    true,
	"metadata": true,
	"news":     true,
	"series":   true,
	"content":  true,
}

var irregularPlurals = map[string]string{
	"person":   "people",
	"child":    "children",
	"man":      "men",
	"woman":    "women",
	"mouse":    "mice",
	"index":    "indices",
	"analysis": "analyses",
	"datum":    "data",
	"schema":   "schemas",
	"status":   "statuses",
}
