package templates

import (
	"fmt"
	"sort"
	"sync"

	"github.com/distill-ai/distill/pkg/schema"
)

// Registry holds named extraction templates.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]schema.Schema
}

// NewRegistry returns a registry preloaded with the built-in templates.
func NewRegistry() (*Registry, error) {
	r := &Registry{schemas: make(map[string]schema.Schema)}

	builtins := []struct {
		id    string
		build func() (schema.Schema, error)
	}{
		{"recipe", func() (schema.Schema, error) {
			return schema.NewSchema[Recipe](
				schema.WithName("recipe"),
				schema.WithDescription("Extract structured information from recipes"),
				schema.WithInstructions(recipeInstructions),
			)
		}},
		{"job", func() (schema.Schema, error) {
			return schema.NewSchema[JobDescription](
				schema.WithName("job"),
				schema.WithDescription("Extract structured information from job descriptions"),
				schema.WithInstructions(jobInstructions),
			)
		}},
		{"event", func() (schema.Schema, error) {
			return schema.NewSchema[Event](
				schema.WithName("event"),
				schema.WithDescription("Extract structured information from event descriptions"),
				schema.WithInstructions(eventInstructions),
			)
		}},
		{"review", func() (schema.Schema, error) {
			return schema.NewSchema[ProductReview](
				schema.WithName("review"),
				schema.WithDescription("Extract structured information from product reviews"),
				schema.WithInstructions(reviewInstructions),
			)
		}},
	}

	for _, b := range builtins {
		s, err := b.build()
		if err != nil {
			return nil, fmt.Errorf("failed to build template %s: %w", b.id, err)
		}
		r.schemas[b.id] = s
	}

	return r, nil
}

// Lookup returns the template registered under id.
func (r *Registry) Lookup(id string) (schema.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[id]
	return s, ok
}

// Register adds or replaces a template under id.
func (r *Registry) Register(id string, s schema.Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[id] = s
}

// Names returns the registered template IDs in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for id := range r.schemas {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

// Descriptions returns template IDs mapped to their descriptions.
func (r *Registry) Descriptions() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make(map[string]string, len(r.schemas))
	for id, s := range r.schemas {
		descs[id] = s.Description
	}
	return descs
}
