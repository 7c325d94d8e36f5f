package boundary

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

func countyRows(t *testing.T) *pgxmock.Rows {
	t.Helper()
	sf, err := wkb.Marshal(rectPolygon(t, 37.70, -122.52, 37.83, -122.35), wkb.NDR)
	require.NoError(t, err)

	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(rectPolygon(t, 37.10, -122.55, 37.70, -122.08)))
	sm, err := wkb.Marshal(mp, wkb.NDR)
	require.NoError(t, err)

	return pgxmock.NewRows([]string{"geoid", "name", "geom", "lat", "lon"}).
		AddRow("06075", pgtype.Text{String: "San Francisco", Valid: true}, sf,
			pgtype.Float8{Float64: 37.7651, Valid: true}, pgtype.Float8{Float64: -122.4, Valid: true}).
		AddRow("06081", pgtype.Text{}, sm, pgtype.Float8{}, pgtype.Float8{}).
		AddRow("06999", pgtype.Text{String: "Garbage", Valid: true}, []byte{0x01, 0x02},
			pgtype.Float8{}, pgtype.Float8{})
}

func TestLoadPostGIS(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`(?s)SELECT geoid, name, ST_AsBinary\(geom\).*FROM "geo"\."counties"`).
		WillReturnRows(countyRows(t))

	counties, err := LoadPostGIS(context.Background(), mock, "geo.counties")
	require.NoError(t, err)
	require.Len(t, counties, 2, "undecodable geometry is skipped")

	assert.Equal(t, "06075", counties[0].FIPS)
	assert.Equal(t, "San Francisco", counties[0].Name)
	assert.InDelta(t, 37.7651, counties[0].Interior.Lat, 1e-9)
	require.Len(t, counties[0].Polygons, 1)
	assert.Len(t, counties[0].Polygons[0].Outer, 5)

	assert.Equal(t, "06081", counties[1].FIPS)
	assert.Empty(t, counties[1].Name, "NULL name")
	assert.Equal(t, Point{}, counties[1].Interior, "NULL point means no interior point")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadPostGIS_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT geoid").WillReturnError(errors.New("relation does not exist"))

	_, err = LoadPostGIS(context.Background(), mock, "geo.counties")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geo.counties")
	assert.NoError(t, mock.ExpectationsWereMet())
}
