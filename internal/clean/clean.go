// Package clean repairs inequality-censored numeric fields from laboratory
// exports into usable point estimates.
package clean

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// censoredOffset is subtracted from a reported detection limit to produce a
// point estimate just below the bound.
const censoredOffset = 0.01

// Value parses a raw field that is either a plain number or a censored
// bound of the form "< X". Censored values return X - 0.01. Anything else
// is a data-quality error.
func Value(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, eris.New("clean: empty value")
	}

	if rest, ok := strings.CutPrefix(s, "<"); ok {
		bound, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil {
			return 0, eris.Wrapf(err, "clean: parse censored bound %q", raw)
		}
		return bound - censoredOffset, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "clean: parse value %q", raw)
	}
	return v, nil
}

// Field parses a raw field and reports whether it was usable. Malformed
// fields are logged and dropped; the surrounding record is kept.
func Field(column, raw string) (float64, bool) {
	v, err := Value(raw)
	if err != nil {
		zap.L().Warn("clean: dropping malformed field",
			zap.String("column", column),
			zap.String("raw", raw),
		)
		return 0, false
	}
	return v, true
}
