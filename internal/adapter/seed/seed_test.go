package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = `
stations:
  kokx:
    name: Upton
    latitude: 40.87
    country: US
  KWBC:
    location: College Park, MD
products:
  AFDOKX:
    name: Area Forecast Discussion
    category: Forecasts/Analyses
`

func TestParse(t *testing.T) {
	d, err := Parse([]byte(testSeed))
	require.NoError(t, err)

	okx, ok := d.Station("KOKX")
	require.True(t, ok, "codes are upper-cased")
	assert.Equal(t, "Upton", *okx.Name)
	assert.InDelta(t, 40.87, *okx.Latitude, 0.0001)
	assert.Nil(t, okx.Region)

	afd, ok := d.Product("AFDOKX")
	require.True(t, ok)
	assert.Equal(t, "Forecasts/Analyses", *afd.Category)
}

func TestParse_Empty(t *testing.T) {
	d, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, d.Stations)
	assert.Empty(t, d.Products)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "unknown attribute", doc: "stations:\n  KOKX:\n    altitude: 3\n", want: "altitude"},
		{name: "unknown section", doc: "readings: {}\n", want: "readings"},
		{name: "bad code", doc: "products:\n  \"AFD-OKX\":\n    name: x\n", want: `invalid product code "AFD-OKX"`},
		{name: "wrong type", doc: "stations:\n  KOKX:\n    latitude: north\n", want: "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_OverlaysBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSeed), 0o600))

	d, err := Load(path)
	require.NoError(t, err)

	kwbc, ok := d.Station("KWBC")
	require.True(t, ok)
	assert.Equal(t, "College Park, MD", *kwbc.Location, "file values win")
	assert.Equal(t, "National Weather Service", *kwbc.Name, "builtins fill the gaps")

	_, ok = d.Product("STPTPTCN")
	assert.True(t, ok)
	_, ok = d.Station("KOKX")
	assert.True(t, ok)
}

func TestLoad_NoPathReturnsBuiltins(t *testing.T) {
	d, err := Load("")
	require.NoError(t, err)
	_, ok := d.Station("KWBC")
	assert.True(t, ok)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "read seed file")
}
