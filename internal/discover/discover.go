// Package discover enumerates candidate declaration files under a root.
package discover

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
)

// FileEntry represents a discovered file.
type FileEntry struct {
	Path   string // Relative to root
	Abs    string
	Module string
	Size   int64
}

// Options controls which files are produced.
type Options struct {
	// Match selects files by base name. Nil matches everything.
	Match func(name string) bool
	// ExcludeDirs are directory names pruned in addition to DefaultSkipDirs.
	ExcludeDirs []string
	// RespectGitignore restricts the walk to files git would track.
	RespectGitignore bool
}

// DefaultSkipDirs are never descended into. Hidden directories are skipped as well.
var DefaultSkipDirs = []string{
	"__pycache__",
	"node_modules",
	".git",
	".hg",
	".svn",
	"venv",
	".venv",
	"env",
	".env",
	"build",
	"dist",
	".tox",
	".mypy_cache",
	".ruff_cache",
	".pytest_cache",
	"egg-info",
}

// ExtensionMatcher returns a Match function accepting the given extensions.
func ExtensionMatcher(exts ...string) func(string) bool {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[strings.ToLower(filepath.Ext(name))]
		return ok
	}
}

// ModuleOf returns the module a root-relative path belongs to: its first
// path segment, or "." for files directly under the root.
func ModuleOf(rel string) string {
	rel = filepath.ToSlash(rel)
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return "."
}

// Walk lazily yields matching files under root. Excluded directories are
// pruned at descent time, so nothing inside them is visited.
// Iteration order is lexical within each directory.
func Walk(root string, opts Options) iter.Seq2[FileEntry, error] {
	return func(yield func(FileEntry, error) bool) {
		root, err := filepath.Abs(root)
		if err != nil {
			yield(FileEntry{}, err)
			return
		}

		skip := make(map[string]struct{}, len(DefaultSkipDirs)+len(opts.ExcludeDirs))
		for _, d := range DefaultSkipDirs {
			skip[d] = struct{}{}
		}
		for _, d := range opts.ExcludeDirs {
			skip[d] = struct{}{}
		}

		var gitFiles map[string]struct{}
		var gi *ignore.GitIgnore
		if opts.RespectGitignore {
			gitFiles = gitLsFiles(root)
			if gitFiles == nil {
				gi = loadGitignore(root)
			}
		}

		stop := errors.New("stop")
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip errors
			}

			name := d.Name()

			if d.IsDir() {
				if path == root {
					return nil
				}
				if _, ok := skip[name]; ok || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".egg-info") {
					return filepath.SkipDir
				}
				if gi != nil {
					if rel, err := filepath.Rel(root, path); err == nil && gi.MatchesPath(rel+"/") {
						return filepath.SkipDir
					}
				}
				return nil
			}

			if strings.HasPrefix(name, ".") {
				return nil
			}

			// Skip symlinks
			if d.Type()&os.ModeSymlink != 0 {
				return nil
			}

			if opts.Match != nil && !opts.Match(name) {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}

			if gitFiles != nil {
				if _, ok := gitFiles[filepath.ToSlash(rel)]; !ok {
					return nil
				}
			} else if gi != nil && gi.MatchesPath(rel) {
				return nil
			}

			var size int64
			if info, err := d.Info(); err == nil {
				size = info.Size()
			}

			entry := FileEntry{Path: rel, Abs: path, Module: ModuleOf(rel), Size: size}
			if !yield(entry, nil) {
				return stop
			}
			return nil
		})
		if err != nil && !errors.Is(err, stop) {
			yield(FileEntry{}, err)
		}
	}
}

// Files collects Walk into a slice sorted by path.
func Files(root string, opts Options) ([]FileEntry, error) {
	var results []FileEntry
	for entry, err := range Walk(root, opts) {
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// Modules lists the module directories directly under root, sorted, with
// "." for root itself first. Skipped and hidden directories are left out.
func Modules(root string, opts Options) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]struct{}, len(DefaultSkipDirs)+len(opts.ExcludeDirs))
	for _, d := range DefaultSkipDirs {
		skip[d] = struct{}{}
	}
	for _, d := range opts.ExcludeDirs {
		skip[d] = struct{}{}
	}

	modules := []string{"."}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if _, ok := skip[name]; ok || strings.HasPrefix(name, ".") {
			continue
		}
		modules = append(modules, name)
	}
	sort.Strings(modules[1:])
	return modules, nil
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// -z keeps paths verbatim; without it core.quotePath C-quotes non-ASCII names.
	cmd := exec.CommandContext(ctx, "git", "ls-files", "-z", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, name := range strings.Split(string(out), "\x00") {
		if name != "" {
			files[name] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
