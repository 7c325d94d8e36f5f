package boundary

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// LoadGeoJSON reads county features from a GeoJSON FeatureCollection.
// Features whose geometry is not a Polygon or MultiPolygon are skipped.
func LoadGeoJSON(path string) ([]County, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: read geojson %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "boundary: decode geojson %s", path)
	}

	counties := make([]County, 0, len(fc.Features))
	var skipped int
	for _, f := range fc.Features {
		if f == nil {
			skipped++
			continue
		}
		polys, err := polygonsFromGeom(f.Geometry)
		if err != nil || len(polys) == 0 {
			skipped++
			continue
		}
		attrs := attributesFromProperties(f.Properties)
		if attrs.fips() == "" && f.ID != "" {
			attrs["geoid"] = f.ID
		}
		counties = append(counties, attrs.county(polys))
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped geojson features",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return counties, nil
}
