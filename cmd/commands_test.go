//go:build !integration

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/county-api/internal/boundary"
	"github.com/sells-group/county-api/internal/boundary/boundarytest"
	"github.com/sells-group/county-api/internal/config"
)

func TestRunLookup(t *testing.T) {
	rc := testContext(t, testConfig())

	var buf bytes.Buffer
	require.NoError(t, runLookup(&buf, rc, 37.7749, -122.4194))
	var out lookupOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.NotNil(t, out.FIPS)
	assert.Equal(t, boundarytest.SanFrancisco, *out.FIPS)
	assert.Equal(t, "San Francisco County", *out.CountyName)

	buf.Reset()
	require.NoError(t, runLookup(&buf, rc, 0, 0))
	assert.Contains(t, buf.String(), `"fips": null`)

	assert.Error(t, runLookup(&buf, rc, 95, 0))
}

func TestParseCoords(t *testing.T) {
	lat, lon, err := parseCoords("37.5", "-77.5")
	require.NoError(t, err)
	assert.Equal(t, 37.5, lat)
	assert.Equal(t, -77.5, lon)

	_, _, err = parseCoords("north", "1")
	assert.ErrorContains(t, err, "latitude")
	_, _, err = parseCoords("1", "")
	assert.ErrorContains(t, err, "longitude")
}

func TestParsePath(t *testing.T) {
	path, err := parsePath([]string{"37.30,-122.45", "37.78, -122.45"})
	require.NoError(t, err)
	assert.Equal(t, []boundary.Point{{Lat: 37.30, Lon: -122.45}, {Lat: 37.78, Lon: -122.45}}, path)

	_, err = parsePath([]string{"37.30", "37.78,-122.45"})
	assert.ErrorContains(t, err, "point 0")
	_, err = parsePath([]string{"37.30,-122.45", "x,-122.45"})
	assert.ErrorContains(t, err, "point 1")
}

func TestRunRoute(t *testing.T) {
	rc := testContext(t, testConfig())

	var buf bytes.Buffer
	path := []boundary.Point{{Lat: 37.30, Lon: -122.45}, {Lat: 37.78, Lon: -122.45}}
	require.NoError(t, runRoute(&buf, rc, path))
	out := buf.String()
	assert.Contains(t, out, "San Mateo County")
	assert.Contains(t, out, "San Francisco County")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("San Mateo")), bytes.Index(buf.Bytes(), []byte("San Francisco")))

	buf.Reset()
	require.NoError(t, runRoute(&buf, rc, []boundary.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}))
	assert.Equal(t, "no counties crossed\n", buf.String())
}

func TestRunInspect(t *testing.T) {
	rc := testContext(t, testConfig())

	var buf bytes.Buffer
	require.NoError(t, runInspect(&buf, rc))
	out := buf.String()
	assert.Contains(t, out, "METRIC")
	assert.Contains(t, out, "counties")
	assert.Contains(t, out, "malformed counties")
	assert.Contains(t, out, "skipped:")
	assert.Contains(t, out, boundarytest.Broken)
}

func TestWriteConfig(t *testing.T) {
	c := testConfig()
	c.Boundaries.DatabaseURL = "postgres://geo:s3cret@db:5432/census"

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, c))
	assert.NotContains(t, buf.String(), "s3cret")

	var back config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, 8000, back.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, back.Server.AllowedOrigins)
	assert.Equal(t, "postgres://geo:xxxxx@db:5432/census", back.Boundaries.DatabaseURL)
	assert.Equal(t, "postgres://geo:s3cret@db:5432/census", c.Boundaries.DatabaseURL, "input is not modified")
}
