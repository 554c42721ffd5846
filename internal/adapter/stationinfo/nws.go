package stationinfo

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/couchcryptid/emwin-ingest/internal/domain"
)

const feetToMeters = 0.3048

// NWS looks up observation stations on the National Weather Service API.
// It is only asked about codes with a configured prefix (US ICAO regions).
type NWS struct {
	baseURL    string
	prefixes   []string
	userAgent  string
	httpClient *http.Client
}

func NewNWS(baseURL string, prefixes []string, userAgent string, hc *http.Client) *NWS {
	return &NWS{
		baseURL:    strings.TrimRight(baseURL, "/"),
		prefixes:   prefixes,
		userAgent:  userAgent,
		httpClient: hc,
	}
}

func (n *NWS) Name() string { return "nws" }

func (n *NWS) Accepts(code string) bool {
	for _, p := range n.prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

func (n *NWS) Fetch(ctx context.Context, code string) (domain.StationInfo, error) {
	var resp nwsStation
	if err := getJSON(ctx, n.httpClient, n.Name(), n.baseURL+"/stations/"+url.PathEscape(code), n.userAgent, &resp); err != nil {
		return domain.StationInfo{}, err
	}

	p := resp.Properties
	var info domain.StationInfo
	if p.Name != "" {
		info.Name = domain.Ptr(p.Name)
		info.Location = domain.Ptr(p.Name)
		if i := strings.LastIndex(p.Name, ", "); i >= 0 && len(p.Name)-i-2 == 2 {
			info.Region = domain.Ptr(p.Name[i+2:])
		}
	}
	if len(resp.Geometry.Coordinates) == 2 {
		info.Longitude = domain.Ptr(resp.Geometry.Coordinates[0])
		info.Latitude = domain.Ptr(resp.Geometry.Coordinates[1])
	}
	if v := p.Elevation.Value; v != nil {
		meters := *v
		if strings.HasSuffix(p.Elevation.UnitCode, ":ft") {
			meters *= feetToMeters
		}
		info.ElevationMeters = domain.Ptr(meters)
	}
	if info.IsEmpty() {
		return info, nil
	}
	info.Type = domain.Ptr("Observation Station")
	info.Country = domain.Ptr("US")
	return info, nil
}

// NWS API response types (GeoJSON feature).

type nwsStation struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geometry"`
	Properties struct {
		StationIdentifier string `json:"stationIdentifier"`
		Name              string `json:"name"`
		Elevation         struct {
			UnitCode string   `json:"unitCode"`
			Value    *float64 `json:"value"`
		} `json:"elevation"`
	} `json:"properties"`
}
