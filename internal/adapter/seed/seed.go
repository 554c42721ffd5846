// Package seed reads operator-supplied station and product defaults from a
// YAML file. Entries are overlaid on the built-in table, so a file only needs
// the codes and attributes it wants to add or correct:
//
//	stations:
//	  KOKX:
//	    name: Upton
//	    country: US
//	products:
//	  AFDOKX:
//	    name: Area Forecast Discussion
//	    category: Forecasts/Analyses
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/emwin-ingest/internal/domain"
)

var validCode = regexp.MustCompile(`^[A-Z0-9]+$`)

type file struct {
	Stations map[string]domain.StationInfo `yaml:"stations"`
	Products map[string]domain.ProductInfo `yaml:"products"`
}

// Load reads path and returns the built-in defaults overlaid with its entries.
// An empty path returns the built-in defaults.
func Load(path string) (domain.Defaults, error) {
	if path == "" {
		return domain.BuiltinDefaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Defaults{}, fmt.Errorf("read seed file: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return domain.Defaults{}, fmt.Errorf("seed file %s: %w", path, err)
	}
	return domain.BuiltinDefaults().Overlay(d), nil
}

// Parse decodes a defaults document. Unknown keys and malformed codes are
// errors; codes are upper-cased.
func Parse(data []byte) (domain.Defaults, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return domain.Defaults{}, fmt.Errorf("decode: %w", err)
	}

	d := domain.Defaults{
		Stations: make(map[string]domain.StationInfo, len(f.Stations)),
		Products: make(map[string]domain.ProductInfo, len(f.Products)),
	}
	for code, info := range f.Stations {
		c, err := normalize("station", code)
		if err != nil {
			return domain.Defaults{}, err
		}
		d.Stations[c] = info
	}
	for code, info := range f.Products {
		c, err := normalize("product", code)
		if err != nil {
			return domain.Defaults{}, err
		}
		d.Products[c] = info
	}
	return d, nil
}

func normalize(kind, code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if !validCode.MatchString(c) {
		return "", fmt.Errorf("invalid %s code %q", kind, code)
	}
	return c, nil
}
