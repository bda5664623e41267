package delivery

import "strings"

// FormatRecipient normalizes a member's phone number into a gateway target.
// Non-digits are stripped; a leading 0 is swapped for the country code;
// numbers already carrying the country code pass through; everything else
// gets the country code prepended.
func FormatRecipient(phone, countryCode string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(digits, "0"):
		return countryCode + digits[1:]
	case strings.HasPrefix(digits, countryCode):
		return digits
	default:
		return countryCode + digits
	}
}
