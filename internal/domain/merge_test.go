package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationInfoFillMissing(t *testing.T) {
	t.Run("never clobbers known fields", func(t *testing.T) {
		s := StationInfo{Name: Ptr("Foo")}

		changed := s.FillMissing(StationInfo{Name: Ptr("Bar"), ElevationMeters: Ptr(120.0)})

		assert.True(t, changed)
		assert.Equal(t, "Foo", *s.Name)
		require.NotNil(t, s.ElevationMeters)
		assert.Equal(t, 120.0, *s.ElevationMeters)
	})

	t.Run("no change when source adds nothing", func(t *testing.T) {
		s := StationInfo{Name: Ptr("Foo"), Country: Ptr("US")}

		changed := s.FillMissing(StationInfo{Name: Ptr("Bar")})

		assert.False(t, changed)
		assert.Equal(t, "Foo", *s.Name)
	})

	t.Run("empty source never downgrades", func(t *testing.T) {
		s := BuiltinDefaults().Stations["KWBC"]
		before := s

		changed := s.FillMissing(StationInfo{})

		assert.False(t, changed)
		assert.Empty(t, cmp.Diff(before, s))
	})

	t.Run("copies values instead of aliasing", func(t *testing.T) {
		src := StationInfo{Latitude: Ptr(1.5)}
		var s StationInfo

		s.FillMissing(src)
		*src.Latitude = 9

		assert.Equal(t, 1.5, *s.Latitude)
	})
}

func TestProductInfoFillMissing(t *testing.T) {
	p := ProductInfo{Name: Ptr("Spot Forecast")}

	changed := p.FillMissing(ProductInfo{Name: Ptr("Other"), Category: Ptr("Forecasts/Analyses")})

	assert.True(t, changed)
	assert.Equal(t, "Spot Forecast", *p.Name)
	assert.Equal(t, "Forecasts/Analyses", *p.Category)
	assert.Nil(t, p.Description)
}

func TestStationInfoPredicates(t *testing.T) {
	assert.True(t, StationInfo{}.IsEmpty())
	assert.False(t, StationInfo{}.HasCoordinates())
	assert.False(t, StationInfo{Latitude: Ptr(1.0)}.HasCoordinates())

	kwbc := BuiltinDefaults().Stations["KWBC"]
	assert.True(t, kwbc.HasCoordinates())
	assert.True(t, kwbc.IsComplete())
	assert.False(t, kwbc.IsEmpty())
	assert.False(t, StationInfo{Name: Ptr("x")}.IsComplete())
}

func TestStationTouch(t *testing.T) {
	t0 := time.Date(2025, 5, 17, 1, 0, 0, 0, time.UTC)
	s := NewStation("KWBC", StationInfo{}, t0)

	assert.True(t, s.Touch(t0.Add(time.Hour)))
	assert.False(t, s.Touch(t0), "last seen must not move backwards")
	assert.Equal(t, t0.Add(time.Hour), s.LastSeen)
	assert.Equal(t, t0, s.FirstSeen)
}

func TestDefaultsOverlay(t *testing.T) {
	builtin := BuiltinDefaults()
	operator := Defaults{
		Stations: map[string]StationInfo{
			"KWBC": {Name: Ptr("NWS Headquarters")},
			"KOKX": {Name: Ptr("Upton NY"), Country: Ptr("US")},
		},
		Products: map[string]ProductInfo{
			"AFDOKX": {Name: Ptr("Area Forecast Discussion")},
		},
	}

	merged := builtin.Overlay(operator)

	kwbc, ok := merged.Station("KWBC")
	require.True(t, ok)
	assert.Equal(t, "NWS Headquarters", *kwbc.Name)
	assert.Equal(t, "Washington, DC", *kwbc.Location)

	_, ok = merged.Station("KOKX")
	assert.True(t, ok)
	_, ok = merged.Product("STPTPTCN")
	assert.True(t, ok)
	_, ok = merged.Product("AFDOKX")
	assert.True(t, ok)

	assert.Equal(t, "National Weather Service", *builtin.Stations["KWBC"].Name, "overlay must not mutate its receiver")
	assert.Len(t, builtin.Stations, 1)
}
