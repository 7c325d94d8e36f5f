package main

import (
	"context"
	"time"

	"github.com/sells-group/county-api/internal/boundary"
	"github.com/sells-group/county-api/internal/config"
	"github.com/sells-group/county-api/internal/resolver"
	"github.com/sells-group/county-api/internal/spatial"
)

func boundarySource(c *config.Config) boundary.Source {
	return boundary.Source{
		Format:      c.Boundaries.Format,
		Path:        c.Boundaries.Path,
		Layer:       c.Boundaries.Layer,
		DatabaseURL: c.Boundaries.DatabaseURL,
		Table:       c.Boundaries.Table,
		TempDir:     c.Boundaries.TempDir,
	}
}

func gridOptions(c *config.Config) spatial.Options {
	return spatial.Options{
		CellDegrees:      c.Index.CellDegrees,
		TargetCandidates: c.Index.TargetCandidates,
		MinCellDegrees:   c.Index.MinCellDegrees,
	}
}

func resolverOptions(c *config.Config) []resolver.Option {
	if !c.Cache.Enabled {
		return nil
	}
	ttl := time.Duration(c.Cache.TTLSecs) * time.Second
	return []resolver.Option{resolver.WithCache(resolver.NewCache(c.Cache.MaxEntries, ttl))}
}

// loadContext validates cfg for mode and builds the resolver context from the
// configured dataset.
func loadContext(ctx context.Context, c *config.Config, mode string) (*resolver.Context, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}
	return resolver.LoadContext(ctx, boundarySource(c), gridOptions(c), resolverOptions(c)...)
}
