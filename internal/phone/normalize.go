// Package phone canonicalizes raw phone input into a stable identity key.
// Normalization is a pure function: the same physical number always yields
// the same normalized form regardless of formatting.
package phone

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"

	"github.com/disruption-hub/chat-auth/internal/autherr"
)

// Number is the canonical form of a parsed phone number.
type Number struct {
	// Raw is the input as received, trimmed.
	Raw string
	// Normalized is the E.164 representation (e.g. "+12345678900"); unique
	// key component per tenant.
	Normalized string
	// CountryCode is the international dialing code without prefix (e.g. "1").
	CountryCode string
}

// Normalize parses raw into a canonical Number. countryCodeHint may be a
// dialing code ("1", "+55") or an ISO region ("US", "br"); it is only
// consulted when raw carries no international prefix. Returns an
// invalid_phone error when the input cannot be resolved to a valid number
// with a recognizable country code.
func Normalize(raw, countryCodeHint string) (Number, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Number{}, autherr.New(autherr.CodeInvalidPhone, "phone number is required")
	}

	candidate := trimmed
	// "00" is the ITU international call prefix; fold it into "+" so both
	// spellings normalize identically.
	if strings.HasPrefix(candidate, "00") {
		candidate = "+" + strings.TrimLeft(candidate[2:], "0")
	}

	region := regionFromHint(countryCodeHint)
	parsed, err := phonenumbers.Parse(candidate, region)
	if err != nil {
		return Number{}, autherr.Wrap(autherr.CodeInvalidPhone, "phone number could not be parsed", err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return Number{}, autherr.New(autherr.CodeInvalidPhone, "phone number is not valid")
	}

	return Number{
		Raw:         trimmed,
		Normalized:  phonenumbers.Format(parsed, phonenumbers.E164),
		CountryCode: strconv.Itoa(int(parsed.GetCountryCode())),
	}, nil
}

// regionFromHint maps a country hint to an ISO region for the parser.
// Returns "ZZ" (unknown) when the hint is absent or unrecognizable; parsing
// then succeeds only for numbers carrying their own "+" prefix.
func regionFromHint(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return "ZZ"
	}
	if isAlpha(hint) {
		return strings.ToUpper(hint)
	}
	digits := strings.TrimPrefix(hint, "+")
	code, err := strconv.Atoi(digits)
	if err != nil {
		return "ZZ"
	}
	return phonenumbers.GetRegionCodeForCountryCode(code)
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(s) > 0
}
