// Package utm maps between WGS 84 coordinates, UTM stripe ids (e.g. "33N") and their EPSG codes.
package utm

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
)

const (
	StripeWidthDeg = 6.
	Top            = 84.
	Bottom         = -80.
	StripeCount    = 60

	epsgNorthPrefix = 32600
	epsgSouthPrefix = 32700
)

// Grid parameters shared by all UTM stripe presets: one column of ten rows covering
// 1000 km easting and 10000 km northing.
const (
	PresetHeight = 10
	PresetWidth  = 1
)

var PresetBounds = [4]float64{0, 0, 1e6, 1e7}

var ErrInvalidStripe = errors.New("invalid UTM stripe")

type Hemisphere byte

const (
	North Hemisphere = 'N'
	South Hemisphere = 'S'
)

type Stripe struct {
	Zone       int
	Hemisphere Hemisphere
}

// ID returns the stripe id, zero padded to three characters.
func (s Stripe) ID() string {
	return fmt.Sprintf("%02d%c", s.Zone, s.Hemisphere)
}

func (s Stripe) EPSG() int {
	if s.Hemisphere == South {
		return epsgSouthPrefix + s.Zone
	}
	return epsgNorthPrefix + s.Zone
}

// PresetName is the name under which the stripe's grid is registered, e.g. "utm-33N".
func (s Stripe) PresetName() string {
	return "utm-" + s.ID()
}

// ParseStripeID parses ids like "33N" or "07S".
func ParseStripeID(id string) (Stripe, error) {
	if len(id) != 3 {
		return Stripe{}, fmt.Errorf("%w: %q", ErrInvalidStripe, id)
	}
	h := Hemisphere(id[2])
	if h != North && h != South {
		return Stripe{}, fmt.Errorf("%w: %q has no hemisphere", ErrInvalidStripe, id)
	}
	zone, err := strconv.Atoi(id[:2])
	if err != nil || zone < 1 || zone > StripeCount {
		return Stripe{}, fmt.Errorf("%w: %q", ErrInvalidStripe, id)
	}
	return Stripe{Zone: zone, Hemisphere: h}, nil
}

// StripeEPSG returns the EPSG identifier of a stripe id, e.g. "33N" -> "EPSG:32633".
func StripeEPSG(id string) (string, error) {
	s, err := ParseStripeID(id)
	if err != nil {
		return "", err
	}
	return "EPSG:" + strconv.Itoa(s.EPSG()), nil
}

// StripeFromPoint returns the stripe a WGS 84 point falls in.
func StripeFromPoint(p orb.Point) (Stripe, error) {
	if p[0] < -180 || p[0] > 180 {
		return Stripe{}, fmt.Errorf("%w: point outside UTM bounds: %v", ErrInvalidStripe, p)
	}
	var h Hemisphere
	switch {
	case 0 <= p[1] && p[1] <= Top:
		h = North
	case Bottom <= p[1] && p[1] < 0:
		h = South
	default:
		return Stripe{}, fmt.Errorf("%w: point outside UTM bounds: %v", ErrInvalidStripe, p)
	}
	zone := int(math.Ceil((180 + p[0]) / StripeWidthDeg))
	if zone == 0 {
		zone = 1
	}
	return Stripe{Zone: zone, Hemisphere: h}, nil
}

func StripeIDFromPoint(p orb.Point) (string, error) {
	s, err := StripeFromPoint(p)
	if err != nil {
		return "", err
	}
	return s.ID(), nil
}

// Stripes returns all stripes, northern hemisphere first, ordered by zone.
func Stripes() []Stripe {
	stripes := make([]Stripe, 0, 2*StripeCount)
	for _, h := range []Hemisphere{North, South} {
		for zone := 1; zone <= StripeCount; zone++ {
			stripes = append(stripes, Stripe{Zone: zone, Hemisphere: h})
		}
	}
	return stripes
}
