package policy

import (
	"reflect"
	"strings"
	"testing"
)

func TestScrubMasksContactDetails(t *testing.T) {
	in := "reach me at jane@example.com or +1 (555) 123-4567, card 4111 1111 1111 1111"
	out, fired := Scrub(in)

	for _, marker := range []string{"[EMAIL]", "[PHONE]", "[CARD]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output %q missing %s", out, marker)
		}
	}
	if strings.Contains(out, "example.com") || strings.Contains(out, "4111") {
		t.Fatalf("output %q still carries raw contact details", out)
	}
	if want := []string{"email", "card", "phone"}; !reflect.DeepEqual(fired, want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
}

func TestScrubMasksBookingReference(t *testing.T) {
	out, fired := Scrub("turn: intent change_flight: reservation 7C2F91AB not found")
	if !strings.Contains(out, "[BOOKING_REF]") || strings.Contains(out, "7C2F91AB") {
		t.Fatalf("output %q, want the confirmation code masked", out)
	}
	if len(fired) != 1 || fired[0] != "booking_ref" {
		t.Fatalf("fired = %v, want [booking_ref]", fired)
	}
}

func TestScrubLeavesPlainTextAlone(t *testing.T) {
	in := "book a flight from Milan to Rome"
	out, fired := Scrub(in)
	if out != in || fired != nil {
		t.Fatalf("Scrub = (%q, %v), want input unchanged", out, fired)
	}
}
