// Package conflict detects duplicate declarations inside buckets.
package conflict

import (
	"github.com/phobologic/dupcheck/internal/index"
	"github.com/phobologic/dupcheck/internal/model"
)

// Registry answers whether a file is registered by its module manifest.
type Registry interface {
	Contains(path string) bool
}

type owner struct {
	cls    *model.ClassDescriptor
	method model.Method
}

// Methods reports, per bucket, every class that repeats a (name, body) pair
// first presented by an earlier class. The first class wins ownership.
// Bodies are compared by exact canonical text.
func Methods(module string, buckets []model.ModelBucket) []model.MethodDuplicate {
	var dups []model.MethodDuplicate
	for _, bucket := range buckets {
		seen := make(map[model.MethodOccurrence]owner)
		for _, cls := range bucket.Classes {
			for _, m := range cls.Methods {
				key := model.MethodOccurrence{Name: m.Name, Body: m.Body}
				first, ok := seen[key]
				if !ok {
					seen[key] = owner{cls: cls, method: m}
					continue
				}
				if first.cls == cls {
					continue
				}
				dups = append(dups, model.MethodDuplicate{
					Module:    module,
					Model:     bucket.Key,
					Method:    m.Name,
					Original:  classRef(first.cls, first.method),
					Duplicate: classRef(cls, m),
				})
			}
		}
	}
	return dups
}

func classRef(cls *model.ClassDescriptor, m model.Method) model.ClassRef {
	return model.ClassRef{
		Class: cls.Name,
		Location: model.Location{
			File:   cls.File,
			Line:   m.Line,
			Column: m.Column,
		},
	}
}

// Records reports one violation per identifier declared in two or more
// files registered by the module manifest. Unregistered occurrences never
// count and are left out of the report.
func Records(module string, idx *index.Records, reg Registry) []model.RecordDuplicate {
	var dups []model.RecordDuplicate
	for _, id := range idx.IDs() {
		occs := idx.Occurrences(id)
		if len(occs) < 2 {
			continue
		}
		registered := FilterRegistered(occs, reg)
		if len(registered) < 2 {
			continue
		}
		locs := make([]model.Location, len(registered))
		for i, d := range registered {
			locs[i] = d.Location
		}
		dups = append(dups, model.RecordDuplicate{
			Module:      module,
			ID:          id,
			Occurrences: locs,
		})
	}
	return dups
}

// FilterRegistered keeps the occurrences whose file is registered.
func FilterRegistered(occs []model.RecordDeclaration, reg Registry) []model.RecordDeclaration {
	if reg == nil {
		return nil
	}
	var kept []model.RecordDeclaration
	for _, o := range occs {
		if reg.Contains(o.File) {
			kept = append(kept, o)
		}
	}
	return kept
}
