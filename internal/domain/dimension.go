package domain

import "time"

// StationInfo is the optional, enrichable part of a Station. A nil field is unknown.
type StationInfo struct {
	Name            *string  `json:"name,omitempty" yaml:"name"`
	Location        *string  `json:"location,omitempty" yaml:"location"`
	Latitude        *float64 `json:"latitude,omitempty" yaml:"latitude"`
	Longitude       *float64 `json:"longitude,omitempty" yaml:"longitude"`
	ElevationMeters *float64 `json:"elevation_meters,omitempty" yaml:"elevation_meters"`
	Type            *string  `json:"type,omitempty" yaml:"type"`
	Region          *string  `json:"region,omitempty" yaml:"region"`
	Country         *string  `json:"country,omitempty" yaml:"country"`
}

// Station is a transmitting site keyed by its originator code.
type Station struct {
	Code string
	StationInfo
	FirstSeen time.Time
	LastSeen  time.Time
}

// ProductInfo is the optional part of a Product.
type ProductInfo struct {
	Name        *string `json:"name,omitempty" yaml:"name"`
	Category    *string `json:"category,omitempty" yaml:"category"`
	Description *string `json:"description,omitempty" yaml:"description"`
}

// Product is a bulletin type keyed by product code.
type Product struct {
	Code string
	ProductInfo
	FirstSeen time.Time
	LastSeen  time.Time
}

// NewStation creates a station first seen at t.
func NewStation(code string, info StationInfo, t time.Time) Station {
	return Station{Code: code, StationInfo: info, FirstSeen: t, LastSeen: t}
}

// NewProduct creates a product first seen at t.
func NewProduct(code string, info ProductInfo, t time.Time) Product {
	return Product{Code: code, ProductInfo: info, FirstSeen: t, LastSeen: t}
}

// Touch advances LastSeen to t. Earlier times are ignored so LastSeen never
// moves backwards.
func (s *Station) Touch(t time.Time) bool {
	if t.After(s.LastSeen) {
		s.LastSeen = t
		return true
	}
	return false
}

// Touch advances LastSeen to t. Earlier times are ignored.
func (p *Product) Touch(t time.Time) bool {
	if t.After(p.LastSeen) {
		p.LastSeen = t
		return true
	}
	return false
}

// HasCoordinates reports whether both latitude and longitude are known.
func (s StationInfo) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// IsEmpty reports whether no attribute is known.
func (s StationInfo) IsEmpty() bool {
	return s == StationInfo{}
}

// IsComplete reports whether every attribute is known, in which case an
// external lookup cannot add anything.
func (s StationInfo) IsComplete() bool {
	return s.Name != nil && s.Location != nil && s.Latitude != nil && s.Longitude != nil &&
		s.ElevationMeters != nil && s.Type != nil && s.Region != nil && s.Country != nil
}

// IsEmpty reports whether no attribute is known.
func (p ProductInfo) IsEmpty() bool {
	return p == ProductInfo{}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
