package boundary

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// LoadGeoPackage reads county features from a GeoPackage (an SQLite file).
// layer names the feature table; empty picks the first table registered in
// gpkg_geometry_columns.
func LoadGeoPackage(ctx context.Context, path, layer string) ([]County, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open geopackage %s", path)
	}
	defer db.Close() //nolint:errcheck

	table, geomCol, err := geometryColumn(ctx, db, layer)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("component", "boundary.geopackage"),
		zap.String("table", table),
	)

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", quoteIdent(table)))
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: query geopackage layer %s", table)
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "boundary: geopackage columns")
	}

	var counties []County
	var skipped int
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "boundary: scan geopackage row")
		}

		attrs := make(attributes, len(cols))
		var blob []byte
		for i, col := range cols {
			if strings.EqualFold(col, geomCol) {
				blob, _ = vals[i].([]byte)
				continue
			}
			attrs[strings.ToLower(col)] = sqlValueString(vals[i])
		}

		polys, err := decodeGPKGPolygons(blob)
		if err != nil || len(polys) == 0 {
			skipped++
			continue
		}
		counties = append(counties, attrs.county(polys))
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "boundary: iterate geopackage rows")
	}

	if skipped > 0 {
		log.Debug("skipped geopackage features", zap.Int("skipped", skipped))
	}
	return counties, nil
}

// geometryColumn resolves the feature table and its geometry column.
func geometryColumn(ctx context.Context, db *sql.DB, layer string) (string, string, error) {
	query := `SELECT table_name, column_name FROM gpkg_geometry_columns`
	var args []any
	if layer != "" {
		query += ` WHERE table_name = ?`
		args = append(args, layer)
	}
	query += ` ORDER BY table_name LIMIT 1`

	var table, col string
	if err := db.QueryRowContext(ctx, query, args...).Scan(&table, &col); err != nil {
		if err == sql.ErrNoRows {
			return "", "", eris.Errorf("boundary: geopackage has no feature layer %q", layer)
		}
		return "", "", eris.Wrap(err, "boundary: read gpkg_geometry_columns")
	}
	return table, col, nil
}

// decodeGPKGPolygons strips the GeoPackage binary header and decodes the
// WKB payload. Empty geometries decode to nil.
func decodeGPKGPolygons(blob []byte) ([]Polygon, error) {
	payload, err := gpkgPayload(blob)
	if err != nil || payload == nil {
		return nil, err
	}
	g, err := wkb.Unmarshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: decode geopackage wkb")
	}
	return polygonsFromGeom(g)
}

// gpkgPayload returns the WKB that follows a GeoPackage geometry header:
// "GP", version, flags, srs_id, optional envelope.
func gpkgPayload(blob []byte) ([]byte, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, eris.New("boundary: not a geopackage geometry blob")
	}
	flags := blob[3]
	if flags&0x20 != 0 {
		return nil, eris.New("boundary: extended geopackage geometries are not supported")
	}
	if flags&0x10 != 0 {
		return nil, nil
	}

	var envLen int
	switch (flags >> 1) & 0x07 {
	case 0:
		envLen = 0
	case 1:
		envLen = 32
	case 2, 3:
		envLen = 48
	case 4:
		envLen = 64
	default:
		return nil, eris.Errorf("boundary: invalid geopackage envelope flag %d", (flags>>1)&0x07)
	}

	start := 8 + envLen
	if len(blob) <= start {
		return nil, eris.New("boundary: truncated geopackage geometry")
	}
	return blob[start:], nil
}

func sqlValueString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
