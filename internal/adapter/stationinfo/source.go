package stationinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/couchcryptid/emwin-ingest/internal/domain"
)

// Source is one external station metadata service.
type Source interface {
	Name() string
	// Accepts reports whether the service can know about code at all.
	Accepts(code string) bool
	// Fetch returns domain.ErrStationNotFound when the service has no data
	// for code; any other error is a transport failure.
	Fetch(ctx context.Context, code string) (domain.StationInfo, error)
}

// StatusError is an unexpected, non-definitive HTTP response.
type StatusError struct {
	Source string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Source, e.Status, e.Body)
}

// getJSON performs a GET and decodes the body into out. 404 and 204 map to
// domain.ErrStationNotFound.
func getJSON(ctx context.Context, hc *http.Client, source, rawURL, userAgent string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/geo+json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", source, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusNoContent:
		return domain.ErrStationNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Source: source, Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.ErrStationNotFound
		}
		return fmt.Errorf("%s decode response: %w", source, err)
	}
	return nil
}
