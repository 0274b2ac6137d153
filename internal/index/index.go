// Package index buckets declarations by the key they may conflict on.
package index

import (
	"github.com/phobologic/dupcheck/internal/model"
)

// ByModule groups items per module, keeping items in input order and
// modules in order of first appearance.
func ByModule[T any](items []T, moduleOf func(T) string) ([]string, map[string][]T) {
	var order []string
	groups := make(map[string][]T)
	for _, item := range items {
		m := moduleOf(item)
		if _, ok := groups[m]; !ok {
			order = append(order, m)
		}
		groups[m] = append(groups[m], item)
	}
	return order, groups
}

// ModelBuckets puts every class into one bucket per model key. Classes keep
// discovery order within a bucket; buckets are ordered by first appearance
// of their key.
func ModelBuckets(classes []*model.ClassDescriptor) []model.ModelBucket {
	var buckets []model.ModelBucket
	pos := make(map[string]int)
	for _, cls := range classes {
		for _, key := range cls.ModelKeys {
			i, ok := pos[key]
			if !ok {
				i = len(buckets)
				pos[key] = i
				buckets = append(buckets, model.ModelBucket{Key: key})
			}
			buckets[i].Classes = append(buckets[i].Classes, cls)
		}
	}
	return buckets
}

// Records maps identifiers to their declarations within one module.
type Records struct {
	ids  []string
	byID map[string][]model.RecordDeclaration
}

// RecordIndex builds an identifier index from declarations in discovery order.
func RecordIndex(decls []model.RecordDeclaration) *Records {
	r := &Records{byID: make(map[string][]model.RecordDeclaration)}
	for _, d := range decls {
		if _, ok := r.byID[d.ID]; !ok {
			r.ids = append(r.ids, d.ID)
		}
		r.byID[d.ID] = append(r.byID[d.ID], d)
	}
	return r
}

// IDs returns the identifiers in order of first declaration.
func (r *Records) IDs() []string {
	return r.ids
}

// Occurrences returns every declaration of id.
func (r *Records) Occurrences(id string) []model.RecordDeclaration {
	return r.byID[id]
}
