package resolver

import (
	"context"

	"github.com/sells-group/county-api/internal/boundary"
	"github.com/sells-group/county-api/internal/spatial"
)

// Context is the startup-built, read-only state shared by request handlers.
type Context struct {
	Store    *boundary.Store
	Grid     *spatial.Grid
	Resolver *Resolver
}

// NewContext indexes store and builds a resolver over it.
func NewContext(store *boundary.Store, gridOpts spatial.Options, opts ...Option) *Context {
	grid := spatial.Build(store, gridOpts)
	return &Context{
		Store:    store,
		Grid:     grid,
		Resolver: New(store, grid, opts...),
	}
}

// LoadContext loads the dataset described by src and builds a Context.
func LoadContext(ctx context.Context, src boundary.Source, gridOpts spatial.Options, opts ...Option) (*Context, error) {
	store, err := boundary.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return NewContext(store, gridOpts, opts...), nil
}
