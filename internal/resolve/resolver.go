// Package resolve turns a parsed references document into a resolved secret
// tree by fetching every referenced value through a provider.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/systmms/noctivault/internal/logging"
	"github.com/systmms/noctivault/pkg/provider"
	"github.com/systmms/noctivault/pkg/schema"
	"github.com/systmms/noctivault/pkg/secrets"
)

// Resolver fetches declared secret references and assembles them into an
// immutable masked tree. It is a single-pass machine: one document in, one
// tree or one error out.
type Resolver struct {
	provider provider.Provider
	logger   *logging.Logger
}

// New creates a resolver that fetches through p. logger may be nil.
func New(p provider.Provider, logger *logging.Logger) *Resolver {
	return &Resolver{provider: p, logger: logger}
}

// step is one planned fetch: the destination path in the tree and the
// coordinate to fetch.
type step struct {
	path []string
	ref  provider.Ref
	typ  secrets.Type
}

// Resolve fetches every reference in document order and builds the tree.
// The first failure aborts the whole pass and no partial tree is returned:
// provider errors pass through unwrapped, a value that does not parse under
// its declared type is a secrets.TypeCastError, and two entries landing on
// the same destination is a secrets.DuplicatePathError.
func (r *Resolver) Resolve(ctx context.Context, refs *schema.ReferenceFile) (*secrets.Interior, error) {
	steps, err := flatten(refs)
	if err != nil {
		return nil, err
	}

	builder := secrets.NewTreeBuilder()
	for _, s := range steps {
		raw, err := r.provider.Fetch(ctx, s.ref)
		if err != nil {
			return nil, err
		}
		value := secrets.NewValue(raw, s.typ)
		// Validate the declared type now so a bad value fails the resolve,
		// not a later reveal.
		if _, err := value.Cast(); err != nil {
			return nil, err
		}
		if err := builder.Insert(s.path, value); err != nil {
			return nil, err
		}
		r.debugf("resolved %s -> %s", s.ref.Resource(), strings.Join(s.path, "."))
	}

	return builder.Build(), nil
}

// flatten orders the document's entries into fetch steps: a top-level ref
// lands at [cast], a group's children land at [key, cast]. Declaration order
// is preserved throughout.
func flatten(refs *schema.ReferenceFile) ([]step, error) {
	var steps []step
	for i, entry := range refs.Entries {
		switch e := entry.(type) {
		case schema.Ref:
			steps = append(steps, leafStep(nil, e))
		case schema.Group:
			for _, child := range e.Children {
				steps = append(steps, leafStep([]string{e.Key}, child))
			}
		default:
			return nil, fmt.Errorf("secret-refs[%d]: unknown entry kind %T", i, entry)
		}
	}
	return steps, nil
}

func leafStep(prefix []string, ref schema.Ref) step {
	path := make([]string, 0, len(prefix)+1)
	path = append(path, prefix...)
	path = append(path, ref.Cast)
	return step{
		path: path,
		ref: provider.Ref{
			Platform: ref.Platform,
			Project:  ref.Project,
			Name:     ref.Name,
			Version:  ref.Version,
		},
		typ: ref.Type,
	}
}

func (r *Resolver) debugf(format string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(format, args...)
	}
}
