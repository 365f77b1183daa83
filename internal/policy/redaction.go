// Package policy keeps what users tell the bot out of log output.
// Transcripts, slot values and handler errors routinely carry contact
// details and booking references, so every line the engine logs passes
// through Scrub first.
package policy

import "regexp"

// A scrubRule masks one category of sensitive text.
type scrubRule struct {
	name    string
	pattern *regexp.Regexp
	mask    string
}

// Card numbers run before phone numbers so a 16-digit card is not
// half-eaten by the phone pattern. Booking references match the 8-char
// uppercase hex confirmation codes the reservation store issues.
var scrubRules = []scrubRule{
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[EMAIL]"},
	{"card", regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[CARD]"},
	{"phone", regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[PHONE]"},
	{"booking_ref", regexp.MustCompile(`\b[0-9A-F]{8}\b`), "[BOOKING_REF]"},
}

// Scrub masks emails, card and phone numbers, and booking reference
// codes in s. It reports the names of the rules that fired, in the order
// they ran.
func Scrub(s string) (string, []string) {
	var fired []string
	for _, r := range scrubRules {
		next := r.pattern.ReplaceAllString(s, r.mask)
		if next != s {
			fired = append(fired, r.name)
		}
		s = next
	}
	return s, fired
}
