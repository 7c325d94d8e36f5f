package boundary

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/county-api/internal/resilience"
)

// zipShapefile returns an in-memory ZIP holding the shapefile triple.
func zipShapefile(t *testing.T, shpPath string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	base := shpPath[:len(shpPath)-len(".shp")]
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		data, err := os.ReadFile(base + ext)
		require.NoError(t, err)
		w, err := zw.Create(filepath.Base(base + ext))
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestCountyURL(t *testing.T) {
	assert.Equal(t,
		"https://www2.census.gov/geo/tiger/TIGER2024/COUNTY/tl_2024_us_county.zip",
		CountyURL(2024))
}

func TestDownload(t *testing.T) {
	payload := zipShapefile(t, writeCountyShapefile(t, t.TempDir(), fixtureRecords()))

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := t.TempDir()
	url := srv.URL + "/tl_2024_us_county.zip"

	shpPath, err := Download(context.Background(), srv.Client(), url, dest, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ".shp", filepath.Ext(shpPath))
	assert.FileExists(t, filepath.Join(dest, "tl_2024_us_county.zip"))
	assert.NoFileExists(t, filepath.Join(dest, "tl_2024_us_county.zip.part"))

	counties, err := LoadShapefile(shpPath, "")
	require.NoError(t, err)
	assert.Len(t, counties, 3)

	// Second run reuses the archive on disk.
	_, err = Download(context.Background(), srv.Client(), url, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDownload_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := t.TempDir()
	_, err := Download(context.Background(), srv.Client(), srv.URL+"/tl_1999_us_county.zip", dest, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	var se *resilience.StatusError
	assert.ErrorAs(t, err, &se)
	assert.NoFileExists(t, filepath.Join(dest, "tl_1999_us_county.zip"))
}

func TestDownload_RetriesUnavailable(t *testing.T) {
	payload := zipShapefile(t, writeCountyShapefile(t, t.TempDir(), fixtureRecords()))

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	_, err := Download(context.Background(), srv.Client(), srv.URL+"/tl_2024_us_county.zip", t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFindFileByExt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "COUNTY.SHP"), nil, 0o644))

	got, err := findFileByExt(dir, ".shp")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "COUNTY.SHP"), got)

	_, err = findFileByExt(dir, ".dbf")
	assert.Error(t, err)
}
