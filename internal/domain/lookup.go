package domain

import (
	"context"
	"errors"
)

// ErrStationNotFound is returned by a StationLookup when no source has data
// for the code. It is a definitive answer, not a transport failure.
var ErrStationNotFound = errors.New("station not found")

// StationLookup resolves station attributes from an external source.
type StationLookup interface {
	LookupStation(ctx context.Context, code string) (StationInfo, error)
}

// ErrLookupDisabled is returned once a StationLookup has switched itself off
// for the rest of the run. Callers should stop asking.
var ErrLookupDisabled = errors.New("station lookup disabled")
