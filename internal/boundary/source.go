package boundary

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/county-api/internal/resilience"
)

// Supported source formats.
const (
	FormatAuto       = "auto"
	FormatShapefile  = "shapefile"
	FormatGeoJSON    = "geojson"
	FormatGeoPackage = "geopackage"
	FormatPostGIS    = "postgis"
)

// Source describes where the county dataset lives.
type Source struct {
	Format      string
	Path        string
	Layer       string
	DatabaseURL string
	Table       string
	TempDir     string
}

// ResolveFormat returns the concrete format, inferring it from the file
// extension when Format is empty or "auto".
func (s Source) ResolveFormat() (string, error) {
	f := strings.ToLower(strings.TrimSpace(s.Format))
	if f != "" && f != FormatAuto {
		switch f {
		case FormatShapefile, FormatGeoJSON, FormatGeoPackage, FormatPostGIS:
			return f, nil
		}
		return "", eris.Errorf("boundary: unknown format %q", s.Format)
	}
	if s.Path == "" && s.DatabaseURL != "" {
		return FormatPostGIS, nil
	}
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".shp", ".zip":
		return FormatShapefile, nil
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".gpkg":
		return FormatGeoPackage, nil
	}
	return "", eris.Errorf("boundary: cannot infer format of %q", s.Path)
}

// Load reads the dataset described by src and builds the store. It fails if
// the source cannot be read or holds no usable county; there is no partial
// mode.
func Load(ctx context.Context, src Source) (*Store, error) {
	format, err := src.ResolveFormat()
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("component", "boundary.loader"),
		zap.String("format", format),
	)
	start := time.Now()

	var counties []County
	switch format {
	case FormatShapefile:
		counties, err = LoadShapefile(src.Path, src.TempDir)
	case FormatGeoJSON:
		counties, err = LoadGeoJSON(src.Path)
	case FormatGeoPackage:
		counties, err = LoadGeoPackage(ctx, src.Path, src.Layer)
	case FormatPostGIS:
		counties, err = loadFromDatabase(ctx, src)
	}
	if err != nil {
		return nil, err
	}

	store, err := NewStore(counties)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: build store from %s", src.describe())
	}

	log.Info("county boundaries loaded",
		zap.String("source", src.describe()),
		zap.Int("records", len(counties)),
		zap.Int("counties", store.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return store, nil
}

func loadFromDatabase(ctx context.Context, src Source) ([]County, error) {
	pool, err := pgxpool.New(ctx, src.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: connect postgis")
	}
	defer pool.Close()

	if err := resilience.Retry(ctx, resilience.DefaultPolicy, "boundary.postgis.ping", pool.Ping); err != nil {
		return nil, eris.Wrap(err, "boundary: ping postgis")
	}

	return LoadPostGIS(ctx, pool, src.Table)
}

func (s Source) describe() string {
	if s.Path != "" {
		return s.Path
	}
	return s.Table
}
