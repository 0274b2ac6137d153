// Package manifest loads the set of data files a module manifest registers.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phobologic/dupcheck/internal/pyliteral"
)

// ErrManifest marks a manifest that is missing or could not be read as a literal.
var ErrManifest = errors.New("manifest failure")

var (
	// DefaultNames are the manifest file names tried in order.
	DefaultNames = []string{"__manifest__.py", "__openerp__.py"}
	// DefaultKeys are the list fields whose entries count as registered.
	DefaultKeys = []string{"data", "demo", "init_xml"}
)

// Options configures manifest loading.
type Options struct {
	Names []string
	Keys  []string
}

func (o Options) names() []string {
	if len(o.Names) == 0 {
		return DefaultNames
	}
	return o.Names
}

func (o Options) keys() []string {
	if len(o.Keys) == 0 {
		return DefaultKeys
	}
	return o.Keys
}

// Registration is the set of absolute, cleaned paths a manifest registers.
type Registration struct {
	Manifest string
	files    map[string]struct{}
}

// Contains reports whether path is registered.
func (r Registration) Contains(path string) bool {
	if r.files == nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	_, ok := r.files[abs]
	return ok
}

// Len returns the number of registered files.
func (r Registration) Len() int {
	return len(r.files)
}

// Load reads the manifest of moduleDir. On any failure it returns an empty
// registration together with an error wrapping ErrManifest.
func Load(ctx context.Context, moduleDir string, opts Options) (Registration, error) {
	moduleDir, err := filepath.Abs(moduleDir)
	if err != nil {
		return Registration{}, fmt.Errorf("%w: %v", ErrManifest, err)
	}

	path := ""
	for _, name := range opts.names() {
		candidate := filepath.Join(moduleDir, name)
		if fi, err := os.Stat(candidate); err == nil && fi.Mode().IsRegular() {
			path = candidate
			break
		}
	}
	if path == "" {
		return Registration{}, fmt.Errorf("%w: no manifest in %s", ErrManifest, moduleDir)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return Registration{Manifest: path}, fmt.Errorf("%w: %v", ErrManifest, err)
	}

	value, err := pyliteral.ParseExpression(ctx, source)
	if err != nil {
		return Registration{Manifest: path}, fmt.Errorf("%w: %s: %v", ErrManifest, path, err)
	}
	dict, ok := value.(map[string]any)
	if !ok {
		return Registration{Manifest: path}, fmt.Errorf("%w: %s: expected a dict, got %T", ErrManifest, path, value)
	}

	reg := Registration{Manifest: path, files: make(map[string]struct{})}
	for _, key := range opts.keys() {
		entries, ok := dict[key].([]any)
		if !ok {
			continue
		}
		for _, entry := range entries {
			rel, ok := entry.(string)
			if !ok || rel == "" {
				continue
			}
			full := filepath.Clean(filepath.Join(moduleDir, filepath.FromSlash(rel)))
			if fi, err := os.Stat(full); err == nil && fi.Mode().IsRegular() {
				reg.files[full] = struct{}{}
			}
		}
	}
	return reg, nil
}

// Failure records a manifest that could not be loaded.
type Failure struct {
	Module   string
	Manifest string
	Err      error
}

// LoadAll loads the registration of every module under root. Module "."
// refers to root itself. Modules without a manifest get an empty
// registration silently; unreadable manifests are reported as failures.
func LoadAll(ctx context.Context, root string, modules []string, opts Options) (map[string]Registration, []Failure) {
	regs := make(map[string]Registration, len(modules))
	var failures []Failure
	for _, module := range modules {
		if ctx.Err() != nil {
			break
		}
		reg, err := Load(ctx, filepath.Join(root, module), opts)
		regs[module] = reg
		if err != nil && reg.Manifest != "" {
			failures = append(failures, Failure{Module: module, Manifest: reg.Manifest, Err: err})
		}
	}
	return regs, failures
}
