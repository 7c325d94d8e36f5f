// Package api exposes the county resolver and the thumbnail converter over
// HTTP.
package api

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/county-api/internal/metrics"
	"github.com/sells-group/county-api/internal/resolver"
	"github.com/sells-group/county-api/internal/thumbnail"
)

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64

	MaxFiles       int
	MaxUploadBytes int64
	ImageRate      float64 // conversions per second; <= 0 is unlimited
	ImageBurst     int
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	if o.MaxFiles <= 0 {
		o.MaxFiles = 10
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 50 << 20
	}
	if o.ImageBurst <= 0 {
		o.ImageBurst = 1
	}
	return o
}

// Server holds the handler dependencies. The resolver context is read-only
// and shared by every request.
type Server struct {
	rc       *resolver.Context
	images   *thumbnail.Converter
	limiter  *rate.Limiter
	validate *validator.Validate
	opts     Options
	log      *zap.Logger
}

// New creates a Server.
func New(rc *resolver.Context, images *thumbnail.Converter, opts Options) *Server {
	opts = opts.withDefaults()

	limit := rate.Inf
	if opts.ImageRate > 0 {
		limit = rate.Limit(opts.ImageRate)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Server{
		rc:       rc,
		images:   images,
		limiter:  rate.NewLimiter(limit, opts.ImageBurst),
		validate: v,
		opts:     opts,
		log:      zap.L().With(zap.String("component", "api")),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
	}

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/cache/stats", s.handleCacheStats)

	r.Post("/county", s.handleCounty)
	r.Post("/get_county_from_point/", s.handleCounty)
	r.Post("/route", s.handleRoute)
	r.Post("/process_polyline/", s.handleRoute)
	r.Get("/counties", s.handleSearchCounties)
	r.Get("/counties/{fips}", s.handleGetCounty)

	r.Post("/convert_images/", s.handleConvertImages)

	return r
}

// accessLog tags every request with an ID, records metrics and logs the
// outcome.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDurationMs.Observe(float64(elapsed.Microseconds()) / 1000)

		s.log.Info("http request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", elapsed),
		)
	})
}
