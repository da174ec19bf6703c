package schema

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed schemas/*.json
var builtinFS embed.FS

// Registry is the process-wide schema cache. Populate it before handing it
// to concurrent validation pipelines; Lookup takes no lock because the map
// never mutates after load.
type Registry struct {
	schemas map[string]*Schema
}

// NewRegistry returns a registry seeded with the built-in schemas.
func NewRegistry() (*Registry, error) {
	r := &Registry{schemas: make(map[string]*Schema)}
	entries, err := builtinFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("schema: read builtins: %w", err)
	}
	for _, e := range entries {
		data, err := builtinFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("schema: read builtin %s: %w", e.Name(), err)
		}
		s, err := Parse(nameFromFile(e.Name()), data)
		if err != nil {
			return nil, err
		}
		r.schemas[s.Name] = s
	}
	return r, nil
}

// LoadDir adds every *.json schema under dir, overriding builtins with the
// same name. Call before validation begins; the registry is read-only after.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("schema: read dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", e.Name(), err)
		}
		s, err := Parse(nameFromFile(e.Name()), data)
		if err != nil {
			return err
		}
		r.schemas[s.Name] = s
	}
	return nil
}

// Register adds or replaces a schema programmatically. Like LoadDir, call
// only during setup.
func (r *Registry) Register(s *Schema) {
	r.schemas[s.Name] = s
}

// Lookup returns the schema by name. The second return is false for an
// unconfigured name; the engine treats that as a permissive pass-through.
func (r *Registry) Lookup(name string) (*Schema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// Names returns the registered schema names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.schemas))
	for n := range r.schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func nameFromFile(file string) string {
	return strings.TrimSuffix(filepath.Base(file), ".json")
}
