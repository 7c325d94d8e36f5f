package boundary

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LoadShapefile reads county records from a .shp file, or from the first .shp
// inside a .zip archive (extracted under tempDir).
func LoadShapefile(path, tempDir string) ([]County, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		shpPath, err := extractShapefile(path, tempDir)
		if err != nil {
			return nil, err
		}
		path = shpPath
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	var counties []County
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		if shape == nil {
			skipped++
			continue
		}

		mp, err := shapeToGeom(shape)
		if err != nil || mp == nil {
			skipped++
			continue
		}
		polys, err := polygonsFromGeom(mp)
		if err != nil || len(polys) == 0 {
			skipped++
			continue
		}

		attrs := make(attributes, len(names))
		for i, name := range names {
			val := strings.TrimRight(reader.Attribute(i), "\x00")
			attrs[name] = strings.TrimSpace(val)
		}
		counties = append(counties, attrs.county(polys))
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return counties, nil
}

// extractShapefile unpacks a ZIP archive next to its siblings and returns the
// path of the .shp it contains.
func extractShapefile(zipPath, tempDir string) (string, error) {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	base := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	extractDir := filepath.Join(tempDir, base)
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "boundary: create extract dir")
	}
	if err := extractZIP(zipPath, extractDir); err != nil {
		return "", eris.Wrap(err, "boundary: extract ZIP")
	}
	shpPath, err := findFileByExt(extractDir, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "boundary: find .shp file")
	}
	return shpPath, nil
}
