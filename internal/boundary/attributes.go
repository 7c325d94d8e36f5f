package boundary

import (
	"encoding/json"
	"strconv"
	"strings"
)

// attributes holds one record's fields keyed by lower-cased field name.
type attributes map[string]string

// fips returns the county FIPS code: GEOID, then FIPS, then STATEFP+COUNTYFP.
// Purely numeric codes shorter than five digits are zero-padded, which
// repairs datasets that stored the code as a number.
func (a attributes) fips() string {
	code := a.first("geoid", "fips", "geoid20", "geoid10")
	if code == "" {
		st, co := a["statefp"], a["countyfp"]
		if st != "" && co != "" {
			code = st + co
		}
	}
	if code != "" && len(code) < 5 && isDigits(code) {
		code = strings.Repeat("0", 5-len(code)) + code
	}
	return code
}

// name prefers the legal/statistical area name ("San Francisco County") and
// falls back to the bare name.
func (a attributes) name() string {
	return a.first("namelsad", "county_name", "name")
}

// interior returns the TIGER internal point when present.
func (a attributes) interior() (Point, bool) {
	lat, errLat := strconv.ParseFloat(a.first("intptlat", "latitude", "intptlat20"), 64)
	lon, errLon := strconv.ParseFloat(a.first("intptlon", "longitude", "intptlon20"), 64)
	if errLat != nil || errLon != nil {
		return Point{}, false
	}
	p := Point{Lat: lat, Lon: lon}
	return p, p.Valid()
}

func (a attributes) first(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(a[k]); v != "" {
			return v
		}
	}
	return ""
}

// county builds a County from the record and its polygons.
func (a attributes) county(polys []Polygon) County {
	c := County{FIPS: a.fips(), Name: a.name(), Polygons: polys}
	if p, ok := a.interior(); ok {
		c.Interior = p
	}
	return c
}

// attributesFromProperties converts GeoJSON-style properties to strings.
func attributesFromProperties(props map[string]interface{}) attributes {
	a := make(attributes, len(props))
	for k, v := range props {
		key := strings.ToLower(k)
		switch x := v.(type) {
		case string:
			a[key] = x
		case float64:
			a[key] = strconv.FormatFloat(x, 'f', -1, 64)
		case json.Number:
			a[key] = x.String()
		case bool:
			a[key] = strconv.FormatBool(x)
		}
	}
	return a
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
