// Package check runs the duplicate-method and duplicate-record analyses over
// an addon tree and returns their findings.
package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/dupcheck/internal/config"
	"github.com/phobologic/dupcheck/internal/conflict"
	"github.com/phobologic/dupcheck/internal/discover"
	"github.com/phobologic/dupcheck/internal/extract"
	"github.com/phobologic/dupcheck/internal/index"
	"github.com/phobologic/dupcheck/internal/lang"
	"github.com/phobologic/dupcheck/internal/manifest"
	"github.com/phobologic/dupcheck/internal/model"
)

// Checker holds what both analyses share.
type Checker struct {
	Root   string
	Config *config.Config
	Logger *log.Logger
}

// New resolves root and returns a Checker. root must be an existing
// directory. A nil logger discards all messages.
func New(root string, cfg *config.Config, logger *log.Logger) (*Checker, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", abs)
	}
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Checker{Root: abs, Config: cfg, Logger: logger}, nil
}

// All runs both analyses concurrently and merges their results, methods first.
func (c *Checker) All(ctx context.Context) (model.Result, error) {
	var methods, records model.Result

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		methods, err = c.Methods(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = c.RecordIDs(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Result{}, err
	}

	methods.Merge(records)
	return methods, nil
}

type pythonFile struct {
	module  string
	classes []*model.ClassDescriptor
}

// Methods reports methods duplicated verbatim across classes of the same
// model within each module.
func (c *Checker) Methods(ctx context.Context) (model.Result, error) {
	res := model.Result{MethodsChecked: true}

	files, err := c.files(discover.ExtensionMatcher(lang.Python().Extensions...))
	if err != nil {
		return res, err
	}
	c.Logger.Debug("scanning python files", "count", len(files))

	opts := extract.ClassOptions{IgnoredInherits: c.Config.IgnoredInherits}
	outcomes, err := parseConcurrent(ctx, files, func() (parser[[]*model.ClassDescriptor], error) {
		ex, err := extract.NewClassExtractor(opts)
		if err != nil {
			return parser[[]*model.ClassDescriptor]{}, err
		}
		return parser[[]*model.ClassDescriptor]{
			parse: func(ctx context.Context, f discover.FileEntry, source []byte) ([]*model.ClassDescriptor, error) {
				return ex.Classes(ctx, source, f.Abs)
			},
			close: ex.Close,
		}, nil
	})
	if err != nil {
		return res, err
	}

	var parsed []pythonFile
	for _, o := range outcomes {
		if o.err != nil {
			res.Diagnostics = append(res.Diagnostics, c.parseDiagnostic(o.file, o.err))
			continue
		}
		if len(o.value) > 0 {
			parsed = append(parsed, pythonFile{module: o.file.Module, classes: o.value})
		}
	}

	modules, byModule := index.ByModule(parsed, func(p pythonFile) string { return p.module })
	for _, module := range modules {
		var classes []*model.ClassDescriptor
		for _, p := range byModule[module] {
			classes = append(classes, p.classes...)
		}
		res.MethodDuplicates = append(res.MethodDuplicates,
			conflict.Methods(module, index.ModelBuckets(classes))...)
	}
	return res, nil
}

// RecordIDs reports record identifiers declared in two or more files
// registered by the same module manifest.
func (c *Checker) RecordIDs(ctx context.Context) (model.Result, error) {
	res := model.Result{RecordsChecked: true}

	walk := c.Config.Walk(nil)
	modules, err := discover.Modules(c.Root, walk)
	if err != nil {
		return res, fmt.Errorf("listing modules: %w", err)
	}
	regs, failures := manifest.LoadAll(ctx, c.Root, modules, c.Config.Manifest())
	if err := ctx.Err(); err != nil {
		return res, err
	}
	for _, f := range failures {
		c.Logger.Warn("unreadable manifest, no files registered", "module", f.Module, "err", f.Err)
		res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
			Kind:     model.ManifestFailure,
			Message:  f.Err.Error(),
			Location: model.Location{File: f.Manifest},
		})
	}

	files, err := c.files(discover.ExtensionMatcher(".xml"))
	if err != nil {
		return res, err
	}
	c.Logger.Debug("scanning xml files", "count", len(files), "modules", len(modules))

	opts := extract.RecordOptions{Tags: c.Config.RecordTags}
	outcomes, err := parseConcurrent(ctx, files, func() (parser[[]model.RecordDeclaration], error) {
		return parser[[]model.RecordDeclaration]{
			parse: func(_ context.Context, f discover.FileEntry, source []byte) ([]model.RecordDeclaration, error) {
				return extract.Records(source, f.Abs, f.Module, opts)
			},
		}, nil
	})
	if err != nil {
		return res, err
	}

	var decls []model.RecordDeclaration
	for _, o := range outcomes {
		if o.err != nil {
			res.Diagnostics = append(res.Diagnostics, c.parseDiagnostic(o.file, o.err))
			continue
		}
		decls = append(decls, o.value...)
	}

	order, byModule := index.ByModule(decls, func(d model.RecordDeclaration) string { return d.Module })
	for _, module := range order {
		reg := regs[module]
		c.Logger.Debug("checking module", "module", module, "registered", reg.Len())
		res.RecordDuplicates = append(res.RecordDuplicates,
			conflict.Records(module, index.RecordIndex(byModule[module]), reg)...)
	}
	return res, nil
}

// files discovers matching files and drops those over the size limit.
func (c *Checker) files(match func(string) bool) ([]discover.FileEntry, error) {
	all, err := discover.Files(c.Root, c.Config.Walk(match))
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	return filterBySize(all, c.Config.MaxFileSize, c.Logger), nil
}

func filterBySize(files []discover.FileEntry, maxSize int64, logger *log.Logger) []discover.FileEntry {
	var kept []discover.FileEntry
	for _, f := range files {
		if f.Size > maxSize {
			logger.Warn("skipped large file", "file", f.Path, "size", f.Size, "limit", maxSize)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func (c *Checker) parseDiagnostic(f discover.FileEntry, err error) model.Diagnostic {
	d := model.Diagnostic{
		Kind:     model.ParseFailure,
		Message:  err.Error(),
		Location: model.Location{File: f.Abs},
	}
	var pe *extract.ParseError
	if errors.As(err, &pe) {
		d.Message = lang.CollapseWhitespace(pe.Err.Error())
		d.Line = pe.Line
		d.Column = pe.Column
	}
	c.Logger.Warn("skipped unparseable file", "file", f.Path, "line", d.Line, "err", d.Message)
	return d
}
