package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are dropped from the end of a vendor name.
var legalSuffixes = map[string]bool{
	"inc": true, "incorporated": true, "llc": true, "ltd": true, "limited": true,
	"corp": true, "corporation": true, "co": true, "company": true, "plc": true,
	"gmbh": true, "ltee": true, "lp": true, "llp": true,
}

// noiseWords appear in statement descriptions but never in a merchant name.
var noiseWords = map[string]bool{
	"pos": true, "purchase": true, "debit": true, "credit": true, "visa": true,
	"mastercard": true, "mc": true, "interac": true, "idp": true, "ach": true,
	"card": true, "payment": true, "pmt": true, "preauth": true, "recurring": true,
	"sq": true, "tst": true, "www": true, "com": true, "ca": true,
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// words lowercases, folds accents and splits on anything that is not a letter
// or digit. Apostrophes and periods join their neighbours ("McDonald's",
// "A.B.C").
func words(s string) []string {
	s = strings.ToLower(foldAccents(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’' || r == '.':
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

func trimLegalSuffixes(fields []string) []string {
	for len(fields) > 1 && legalSuffixes[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}
	return fields
}

// VendorToken canonicalizes a receipt vendor name.
func VendorToken(name string) string {
	return strings.Join(trimLegalSuffixes(words(name)), " ")
}

// SalientToken extracts the merchant part of a statement description: store
// numbers, reference codes and card-network words are dropped.
func SalientToken(description string) string {
	var kept []string
	for _, w := range words(description) {
		if noiseWords[w] || strings.ContainsFunc(w, unicode.IsDigit) {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(trimLegalSuffixes(kept), " ")
}
