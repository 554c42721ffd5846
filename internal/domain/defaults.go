package domain

import "maps"

// Defaults is a hand-curated table of known station and product attributes
// used to seed rows the first time a code is seen.
type Defaults struct {
	Stations map[string]StationInfo
	Products map[string]ProductInfo
}

// BuiltinDefaults returns a fresh copy of the compiled-in defaults.
func BuiltinDefaults() Defaults {
	return Defaults{
		Stations: map[string]StationInfo{
			"KWBC": {
				Name:            Ptr("National Weather Service"),
				Location:        Ptr("Washington, DC"),
				Latitude:        Ptr(38.8951),
				Longitude:       Ptr(-77.0364),
				ElevationMeters: Ptr(25.0),
				Type:            Ptr("Weather Forecast Office"),
				Region:          Ptr("DC"),
				Country:         Ptr("US"),
			},
		},
		Products: map[string]ProductInfo{
			"STPTPTCN": {
				Name:     Ptr("Spot Forecast"),
				Category: Ptr("Forecasts/Analyses"),
			},
		},
	}
}

// Overlay returns a table where entries from o take precedence over d
// attribute by attribute. Neither input is modified.
func (d Defaults) Overlay(o Defaults) Defaults {
	out := Defaults{
		Stations: maps.Clone(d.Stations),
		Products: maps.Clone(d.Products),
	}
	if out.Stations == nil {
		out.Stations = make(map[string]StationInfo)
	}
	if out.Products == nil {
		out.Products = make(map[string]ProductInfo)
	}
	for code, info := range o.Stations {
		merged := info
		merged.FillMissing(out.Stations[code])
		out.Stations[code] = merged
	}
	for code, info := range o.Products {
		merged := info
		merged.FillMissing(out.Products[code])
		out.Products[code] = merged
	}
	return out
}

// Station returns the curated attributes for a station code.
func (d Defaults) Station(code string) (StationInfo, bool) {
	info, ok := d.Stations[code]
	return info, ok
}

// Product returns the curated attributes for a product code.
func (d Defaults) Product(code string) (ProductInfo, bool) {
	info, ok := d.Products[code]
	return info, ok
}
