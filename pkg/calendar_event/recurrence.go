package calendar_event

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// validateRecurrence checks that rule is an RFC 5545 RRULE, with or without the
// "RRULE:" prefix, and that it expands from start.
func validateRecurrence(rule string, start time.Time) error {
	if rule == "" {
		return nil
	}
	opt, err := rrule.StrToROption(strings.TrimPrefix(rule, "RRULE:"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	opt.Dtstart = start
	if _, err := rrule.NewRRule(*opt); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	return nil
}

// normalizeRecurrence stores rules in the provider notation, prefixed with "RRULE:".
func normalizeRecurrence(rule string) string {
	rule = strings.TrimSpace(rule)
	if rule == "" || strings.HasPrefix(rule, "RRULE:") {
		return rule
	}
	return "RRULE:" + rule
}
