package provider

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/billscan/internal/normalize"
)

//go:embed configs/*.yaml
var builtinFS embed.FS

// Registry maps provider slugs to compiled providers.
type Registry struct {
	providers map[string]*Provider
	order     []string // insertion order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*Provider),
	}
}

// Builtin returns a registry holding the embedded provider configs, sorted by
// file name.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	entries, err := fs.ReadDir(builtinFS, "configs")
	if err != nil {
		return nil, eris.Wrap(err, "provider: read embedded configs")
	}
	for _, e := range entries {
		data, err := builtinFS.ReadFile("configs/" + e.Name())
		if err != nil {
			return nil, eris.Wrapf(err, "provider: read embedded %s", e.Name())
		}
		p, err := Parse(data)
		if err != nil {
			return nil, eris.Wrapf(err, "provider: embedded %s", e.Name())
		}
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a provider. Names are compared by slug, so "Duke Energy" and
// "duke-energy" collide.
func (r *Registry) Register(p *Provider) error {
	if _, ok := r.providers[p.Slug]; ok {
		return eris.Errorf("provider: duplicate provider %q", p.Name)
	}
	r.providers[p.Slug] = p
	r.order = append(r.order, p.Slug)
	return nil
}

// Get returns a provider by name or slug.
func (r *Registry) Get(name string) (*Provider, error) {
	p, ok := r.providers[normalize.ProviderToSlug(name)]
	if !ok {
		return nil, eris.Errorf("provider: unknown provider %q", name)
	}
	return p, nil
}

// All returns all providers in registration order.
func (r *Registry) All() []*Provider {
	result := make([]*Provider, 0, len(r.order))
	for _, slug := range r.order {
		result = append(result, r.providers[slug])
	}
	return result
}

// Names returns all registered provider slugs in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// LoadDir registers every *.yaml / *.yml file in dir. A missing directory is
// not an error.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, eris.Wrapf(err, "provider: read dir %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		p, err := LoadConfig(path)
		if err != nil {
			return 0, err
		}
		if err := r.Register(p); err != nil {
			return 0, eris.Wrapf(err, "provider: register %s", path)
		}
		zap.L().Info("provider: loaded extra provider",
			zap.String("provider", p.Name),
			zap.String("path", path),
		)
	}
	return len(paths), nil
}
