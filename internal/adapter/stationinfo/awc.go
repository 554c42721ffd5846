package stationinfo

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/couchcryptid/emwin-ingest/internal/domain"
)

// AWC looks up ICAO stations worldwide on the Aviation Weather Center data API.
type AWC struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewAWC(baseURL, userAgent string, hc *http.Client) *AWC {
	return &AWC{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: hc,
	}
}

func (a *AWC) Name() string { return "awc" }

// Accepts any four-character alphanumeric code, the shape of an ICAO identifier.
func (a *AWC) Accepts(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func (a *AWC) Fetch(ctx context.Context, code string) (domain.StationInfo, error) {
	params := url.Values{
		"ids":    {code},
		"format": {"json"},
	}
	var resp []awcStation
	if err := getJSON(ctx, a.httpClient, a.Name(), a.baseURL+"/api/data/stationinfo?"+params.Encode(), a.userAgent, &resp); err != nil {
		return domain.StationInfo{}, err
	}
	if len(resp) == 0 {
		return domain.StationInfo{}, domain.ErrStationNotFound
	}

	s := resp[0]
	var info domain.StationInfo
	if s.Site != "" {
		info.Name = domain.Ptr(s.Site)
		loc := s.Site
		if s.State != "" {
			loc += ", " + s.State
		}
		info.Location = domain.Ptr(loc)
	}
	info.Latitude = s.Lat
	info.Longitude = s.Lon
	info.ElevationMeters = s.Elev
	if len(s.SiteType) > 0 {
		info.Type = domain.Ptr(strings.Join(s.SiteType, "/"))
	}
	if s.State != "" {
		info.Region = domain.Ptr(s.State)
	}
	if s.Country != "" {
		info.Country = domain.Ptr(s.Country)
	}
	return info, nil
}

// AWC API response types.

type awcStation struct {
	ICAOID   string   `json:"icaoId"`
	Site     string   `json:"site"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Elev     *float64 `json:"elev"` // meters
	State    string   `json:"state"`
	Country  string   `json:"country"`
	SiteType []string `json:"siteType"`
}
