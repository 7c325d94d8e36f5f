package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/county-api/internal/boundary"
	"github.com/sells-group/county-api/internal/resolver"
)

type pointRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	// Lng is accepted as an alias of Lon.
	Lng *float64 `json:"lng" validate:"-"`
}

type countyResponse struct {
	FIPS       *string `json:"fips"`
	CountyName *string `json:"county_name"`
}

type routeRequest struct {
	Polyline [][]float64 `json:"polyline" validate:"required,min=2,dive,len=2"`
}

type routeResponse struct {
	FIPSCodes []string               `json:"fips_codes"`
	Counties  []resolver.RouteCounty `json:"counties"`
}

type countyView struct {
	FIPS     string         `json:"fips"`
	Name     string         `json:"name"`
	BBox     boundary.BBox  `json:"bbox"`
	Interior boundary.Point `json:"interior"`
	Polygons int            `json:"polygons"`
}

func newCountyView(c boundary.County) countyView {
	return countyView{
		FIPS:     c.FIPS,
		Name:     c.Name,
		BBox:     c.BBox,
		Interior: c.Interior,
		Polygons: len(c.Polygons),
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the county API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"counties": s.rc.Store.Len(),
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"cache": s.rc.Resolver.Cache().Stats(),
		"grid":  s.rc.Grid.Stats(),
	})
}

func (s *Server) handleCounty(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Lon == nil {
		req.Lon = req.Lng
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	res, err := s.rc.Resolver.Resolve(*req.Lat, *req.Lon)
	if err != nil {
		s.writeResolveError(w, err)
		return
	}

	var resp countyResponse
	if res.Found {
		resp.FIPS = &res.FIPS
		resp.CountyName = &res.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	path := make([]boundary.Point, len(req.Polyline))
	for i, p := range req.Polyline {
		path[i] = boundary.Point{Lat: p[0], Lon: p[1]}
	}

	counties, err := s.rc.Resolver.ResolveRoute(path)
	if err != nil {
		s.writeResolveError(w, err)
		return
	}

	resp := routeResponse{FIPSCodes: make([]string, len(counties)), Counties: counties}
	for i, c := range counties {
		resp.FIPSCodes[i] = c.FIPS
	}
	if resp.Counties == nil {
		resp.Counties = []resolver.RouteCounty{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetCounty(w http.ResponseWriter, r *http.Request) {
	c, ok := s.rc.Store.Get(chi.URLParam(r, "fips"))
	if !ok {
		writeError(w, http.StatusNotFound, "county not found")
		return
	}
	writeJSON(w, http.StatusOK, newCountyView(c))
}

// handleSearchCounties lists counties whose name matches ?name=, or every
// county when the parameter is absent.
func (s *Server) handleSearchCounties(w http.ResponseWriter, r *http.Request) {
	var found []boundary.County
	if name := r.URL.Query().Get("name"); name != "" {
		found = s.rc.Store.Search(name)
	} else {
		found = s.rc.Store.All()
	}

	out := make([]countyView, len(found))
	for i, c := range found {
		out[i] = newCountyView(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"counties": out})
}

func (s *Server) writeResolveError(w http.ResponseWriter, err error) {
	var ie *resolver.InvalidInputError
	if errors.As(err, &ie) {
		writeError(w, http.StatusUnprocessableEntity, ie.Error())
		return
	}
	s.log.Error("api: resolve failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
