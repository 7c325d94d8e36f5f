package boundary

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"
)

// Querier is the subset of pgxpool.Pool used to read boundaries.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// countyQuery needs only geoid, name and geom; the interior point comes from
// ST_PointOnSurface, which always lies inside the geometry.
const countyQuery = `SELECT geoid, name, ST_AsBinary(geom), ST_Y(ST_PointOnSurface(geom)), ST_X(ST_PointOnSurface(geom)) FROM %s WHERE geom IS NOT NULL ORDER BY geoid`

// LoadPostGIS reads counties from a PostGIS table with geoid, name and geom
// columns. A NULL name loads as an empty name.
func LoadPostGIS(ctx context.Context, q Querier, table string) ([]County, error) {
	ident := pgx.Identifier(strings.Split(table, ".")).Sanitize()

	rows, err := q.Query(ctx, fmt.Sprintf(countyQuery, ident))
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: query %s", table)
	}
	defer rows.Close()

	var counties []County
	var skipped int
	for rows.Next() {
		var (
			geoid    string
			name     pgtype.Text
			raw      []byte
			lat, lon pgtype.Float8
		)
		if err := rows.Scan(&geoid, &name, &raw, &lat, &lon); err != nil {
			return nil, eris.Wrap(err, "boundary: scan county row")
		}

		g, err := wkb.Unmarshal(raw)
		if err != nil {
			skipped++
			continue
		}
		polys, err := polygonsFromGeom(g)
		if err != nil || len(polys) == 0 {
			skipped++
			continue
		}

		c := County{FIPS: geoid, Name: name.String, Polygons: polys}
		if lat.Valid && lon.Valid {
			if p := (Point{Lat: lat.Float64, Lon: lon.Float64}); p.Valid() {
				c.Interior = p
			}
		}
		counties = append(counties, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "boundary: iterate county rows")
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped postgis rows",
			zap.String("table", table),
			zap.Int("skipped", skipped),
		)
	}
	return counties, nil
}
