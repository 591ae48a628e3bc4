package booking

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// defaultPhoneRegion parses numbers without a country prefix as Japanese,
// matching the clinic's customer base.
const defaultPhoneRegion = "JP"

// normalizePhone canonicalizes a customer phone number to national format so
// the same number always searches and displays identically. Inputs that do
// not parse as phone numbers are kept verbatim: the front desk records short
// internal codes for walk-ins, and rejecting them would block real bookings.
func normalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	parsed, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return raw
	}
	return phonenumbers.Format(parsed, phonenumbers.NATIONAL)
}

// phoneDigits keeps only the digit characters of a number.
func phoneDigits(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// phoneMatches reports whether a stored number matches a search query. Both
// sides reduce to their digits first, so the exact digits a customer typed
// at booking still find the stored national format and vice versa. A query
// with no digits matches every booking.
func phoneMatches(stored, query string) bool {
	return strings.Contains(phoneDigits(stored), phoneDigits(query))
}
