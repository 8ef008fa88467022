package kb

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidObservation is returned for colour or pore values outside the enumerations.
var ErrInvalidObservation = errors.New("invalid observation")

// Normalize trims the enumerated fields, fills unanswered ones with the
// healthy defaults and rejects unknown values.
func (o *ScalpObservation) Normalize() error {
	o.Color = Color(strings.TrimSpace(string(o.Color)))
	o.PoreStatus = PoreStatus(strings.TrimSpace(string(o.PoreStatus)))
	switch o.Color {
	case "":
		o.Color = ColorNormal
	case ColorNormal, ColorReddish:
	default:
		return fmt.Errorf("%w: color must be %s or %s", ErrInvalidObservation, ColorNormal, ColorReddish)
	}
	switch o.PoreStatus {
	case "":
		o.PoreStatus = PoreClear
	case PoreClear, PoreClogged:
	default:
		return fmt.Errorf("%w: poreStatus must be %s or %s", ErrInvalidObservation, PoreClear, PoreClogged)
	}
	return nil
}
