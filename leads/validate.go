package leads

import (
	"regexp"
	"strings"
)

// DefaultMinPhoneDigits is the phone length threshold used when the
// configuration does not override it.
const DefaultMinPhoneDigits = 10

var emailRe = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

// ValidEmail reports whether s has a localpart@domain.tld shape. Values are
// never normalized or fixed up; the user is re-prompted instead.
func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

var phoneStrip = strings.NewReplacer(" ", "", "-", "")

// ValidPhone reports whether s is an optional leading '+' followed by at
// least minDigits digits, ignoring spaces and hyphens. minDigits <= 0 falls
// back to DefaultMinPhoneDigits.
func ValidPhone(s string, minDigits int) bool {
	if minDigits <= 0 {
		minDigits = DefaultMinPhoneDigits
	}
	digits := phoneStrip.Replace(strings.TrimSpace(s))
	digits = strings.TrimPrefix(digits, "+")
	if len(digits) < minDigits {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
