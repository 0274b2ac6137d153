package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/dupcheck/internal/index"
	"github.com/phobologic/dupcheck/internal/model"
)

type fileSet map[string]bool

func (f fileSet) Contains(path string) bool { return f[path] }

func class(name, file string, keys []string, methods ...model.Method) *model.ClassDescriptor {
	return &model.ClassDescriptor{Name: name, File: file, ModelKeys: keys, Methods: methods}
}

func method(name, body string, line int) model.Method {
	return model.Method{Name: name, Body: body, Line: line, Column: 9}
}

func TestMethodsFirstSeenWins(t *testing.T) {
	t.Parallel()

	post := "def action_post ( self ) : return True"
	a := class("Invoice", "/r/acct/a.py", []string{"account.invoice"}, method("action_post", post, 3))
	b := class("Invoice", "/r/acct/b.py", []string{"account.invoice"}, method("action_post", post, 7))
	c := class("InvoiceExt", "/r/acct/c.py", []string{"account.invoice"}, method("action_post", post, 11))

	dups := Methods("acct", index.ModelBuckets([]*model.ClassDescriptor{a, b, c}))
	require.Len(t, dups, 2)

	assert.Equal(t, "acct", dups[0].Module)
	assert.Equal(t, "account.invoice", dups[0].Model)
	assert.Equal(t, "action_post", dups[0].Method)
	assert.Equal(t, model.ClassRef{Class: "Invoice", Location: model.Location{File: "/r/acct/a.py", Line: 3, Column: 9}}, dups[0].Original)
	assert.Equal(t, model.ClassRef{Class: "Invoice", Location: model.Location{File: "/r/acct/b.py", Line: 7, Column: 9}}, dups[0].Duplicate)

	assert.Equal(t, "/r/acct/a.py", dups[1].Original.File)
	assert.Equal(t, "/r/acct/c.py", dups[1].Duplicate.File)
}

func TestMethodsDifferentBodiesOrNames(t *testing.T) {
	t.Parallel()

	a := class("A", "a.py", []string{"m"}, method("f", "def f ( self ) : x = 1 return x", 1))
	b := class("B", "b.py", []string{"m"}, method("f", "def f ( self ) : y = 1 return y", 1))
	c := class("C", "c.py", []string{"m"}, method("g", "def f ( self ) : x = 1 return x", 1))

	assert.Empty(t, Methods("mod", index.ModelBuckets([]*model.ClassDescriptor{a, b, c})))
}

func TestMethodsRequireSharedKey(t *testing.T) {
	t.Parallel()

	a := class("A", "a.py", []string{"m1"}, method("f", "body", 1))
	b := class("B", "b.py", []string{"m2"}, method("f", "body", 1))

	assert.Empty(t, Methods("mod", index.ModelBuckets([]*model.ClassDescriptor{a, b})))
}

func TestMethodsSameClassInBucketOnce(t *testing.T) {
	t.Parallel()

	a := class("A", "a.py", []string{"m"}, method("f", "body", 1))
	buckets := []model.ModelBucket{{Key: "m", Classes: []*model.ClassDescriptor{a, a}}}

	assert.Empty(t, Methods("mod", buckets))
}

func TestMethodsReportedPerSharedKey(t *testing.T) {
	t.Parallel()

	a := class("A", "a.py", []string{"x", "y"}, method("f", "body", 1))
	b := class("B", "b.py", []string{"x", "y"}, method("f", "body", 1))

	dups := Methods("mod", index.ModelBuckets([]*model.ClassDescriptor{a, b}))
	require.Len(t, dups, 2)
	assert.Equal(t, "x", dups[0].Model)
	assert.Equal(t, "y", dups[1].Model)
}

func decl(id, file string, line int) model.RecordDeclaration {
	return model.RecordDeclaration{Module: "acct", ID: id, Location: model.Location{File: file, Line: line, Column: 17}}
}

func TestRecordsManifestFilter(t *testing.T) {
	t.Parallel()

	decls := []model.RecordDeclaration{
		decl("acct.partner_1", "/r/acct/views/main.xml", 4),
		decl("acct.partner_1", "/r/acct/views/draft.xml", 2),
		decl("acct.partner_1", "/r/acct/demo/demo.xml", 9),
		decl("acct.single", "/r/acct/views/main.xml", 12),
		decl("acct.unreg", "/r/acct/views/main.xml", 20),
		decl("acct.unreg", "/r/acct/views/draft.xml", 20),
	}
	reg := fileSet{"/r/acct/views/main.xml": true, "/r/acct/demo/demo.xml": true}

	dups := Records("acct", index.RecordIndex(decls), reg)
	require.Len(t, dups, 1)

	d := dups[0]
	assert.Equal(t, "acct", d.Module)
	assert.Equal(t, "acct.partner_1", d.ID)
	assert.Equal(t, []model.Location{
		{File: "/r/acct/views/main.xml", Line: 4, Column: 17},
		{File: "/r/acct/demo/demo.xml", Line: 9, Column: 17},
	}, d.Occurrences)
}

func TestRecordsOneViolationForManyFiles(t *testing.T) {
	t.Parallel()

	decls := []model.RecordDeclaration{
		decl("acct.partner_1", "/r/acct/a.xml", 3),
		decl("acct.partner_1", "/r/acct/b.xml", 5),
		decl("acct.partner_1", "/r/acct/c.xml", 7),
	}
	reg := fileSet{"/r/acct/a.xml": true, "/r/acct/b.xml": true, "/r/acct/c.xml": true}

	dups := Records("acct", index.RecordIndex(decls), reg)
	require.Len(t, dups, 1)
	assert.Equal(t, []model.Location{
		{File: "/r/acct/a.xml", Line: 3, Column: 17},
		{File: "/r/acct/b.xml", Line: 5, Column: 17},
		{File: "/r/acct/c.xml", Line: 7, Column: 17},
	}, dups[0].Occurrences)
}

func TestRecordsSameFileTwice(t *testing.T) {
	t.Parallel()

	decls := []model.RecordDeclaration{
		decl("x", "/r/acct/a.xml", 1),
		decl("x", "/r/acct/a.xml", 5),
	}
	dups := Records("acct", index.RecordIndex(decls), fileSet{"/r/acct/a.xml": true})
	require.Len(t, dups, 1)
	assert.Len(t, dups[0].Occurrences, 2)
}

func TestRecordsEmptyRegistration(t *testing.T) {
	t.Parallel()

	decls := []model.RecordDeclaration{decl("x", "a.xml", 1), decl("x", "b.xml", 1)}
	assert.Empty(t, Records("acct", index.RecordIndex(decls), fileSet{}))
	assert.Empty(t, Records("acct", index.RecordIndex(decls), nil))
}

func TestFilterRegistered(t *testing.T) {
	t.Parallel()

	occs := []model.RecordDeclaration{decl("x", "a.xml", 1), decl("x", "b.xml", 2), decl("x", "c.xml", 3)}
	kept := FilterRegistered(occs, fileSet{"a.xml": true, "c.xml": true})
	require.Len(t, kept, 2)
	assert.Equal(t, "a.xml", kept[0].File)
	assert.Equal(t, "c.xml", kept[1].File)
}
