package utm

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripeEPSG(t *testing.T) {
	tests := []struct {
		id      string
		want    string
		wantErr bool
	}{
		{id: "33N", want: "EPSG:32633"},
		{id: "33S", want: "EPSG:32733"},
		{id: "01N", want: "EPSG:32601"},
		{id: "60S", want: "EPSG:32760"},
		{id: "61N", wantErr: true},
		{id: "00N", wantErr: true},
		{id: "33X", wantErr: true},
		{id: "3N", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := StripeEPSG(tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStripe)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripeIDFromPoint(t *testing.T) {
	tests := []struct {
		name    string
		p       orb.Point
		want    string
		wantErr bool
	}{
		{name: "vienna", p: orb.Point{16.36, 48.2}, want: "33N"},
		{name: "sydney", p: orb.Point{151.2, -33.9}, want: "56S"},
		{name: "equator", p: orb.Point{3, 0}, want: "31N"},
		{name: "western edge", p: orb.Point{-180, 10}, want: "01N"},
		{name: "eastern edge", p: orb.Point{180, -10}, want: "60S"},
		{name: "too far north", p: orb.Point{0, 85}, wantErr: true},
		{name: "too far south", p: orb.Point{0, -80.5}, wantErr: true},
		{name: "out of longitude range", p: orb.Point{-300, 10}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StripeIDFromPoint(tt.p)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStripe)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripes(t *testing.T) {
	stripes := Stripes()
	require.Len(t, stripes, 2*StripeCount)
	assert.Equal(t, "utm-01N", stripes[0].PresetName())
	assert.Equal(t, 32601, stripes[0].EPSG())
	assert.Equal(t, "utm-60S", stripes[len(stripes)-1].PresetName())
	assert.Equal(t, 32760, stripes[len(stripes)-1].EPSG())
	assert.InDelta(t, float64(PresetWidth)/PresetHeight, (PresetBounds[2]-PresetBounds[0])/(PresetBounds[3]-PresetBounds[1]), 1e-12)
}
