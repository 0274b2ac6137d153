// Package model defines core data structures for dupcheck.
package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Location is a 1-based source position. Column is 0 when not derivable.
type Location struct {
	File   string // Absolute path
	Line   int
	Column int
}

// URI returns a clickable file:// link with line and column suffixes.
func (l Location) URI() string {
	p := filepath.ToSlash(l.File)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	s := "file://" + p
	if l.Line > 0 {
		s += fmt.Sprintf(":%d", l.Line)
		if l.Column > 0 {
			s += fmt.Sprintf(":%d", l.Column)
		}
	}
	return s
}

// Method is one method of a class with its canonical body.
type Method struct {
	Name   string
	Body   string
	Line   int
	Column int
}

// ClassDescriptor is one class declared in one file that participates in at
// least one logical model.
type ClassDescriptor struct {
	Name      string
	ModelKeys []string
	Methods   []Method
	File      string
	Line      int
}

// ModelBucket groups the classes that contribute to one logical model.
type ModelBucket struct {
	Key     string
	Classes []*ClassDescriptor
}

// MethodOccurrence is the duplicate-detection key for methods.
type MethodOccurrence struct {
	Name string
	Body string
}

// RecordDeclaration is one identified record in a markup file.
type RecordDeclaration struct {
	Module string
	ID     string
	Tag    string
	Location
}

// ClassRef points at a method inside a class.
type ClassRef struct {
	Class string
	Location
}

// MethodDuplicate reports a method repeated verbatim across classes of a model.
type MethodDuplicate struct {
	Module    string
	Model     string
	Method    string
	Original  ClassRef
	Duplicate ClassRef
}

// RecordDuplicate reports an identifier declared in two or more registered files.
type RecordDuplicate struct {
	Module      string
	ID          string
	Occurrences []Location
}

// DiagnosticKind classifies soft failures.
type DiagnosticKind string

const (
	ParseFailure    DiagnosticKind = "parse"
	ManifestFailure DiagnosticKind = "manifest"
)

// Diagnostic is a non-fatal problem encountered while scanning.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
	Location
}

// Result accumulates the findings of one or more analyses.
type Result struct {
	MethodsChecked   bool
	RecordsChecked   bool
	MethodDuplicates []MethodDuplicate
	RecordDuplicates []RecordDuplicate
	Diagnostics      []Diagnostic
}

// Merge appends other's findings to r.
func (r *Result) Merge(other Result) {
	r.MethodsChecked = r.MethodsChecked || other.MethodsChecked
	r.RecordsChecked = r.RecordsChecked || other.RecordsChecked
	r.MethodDuplicates = append(r.MethodDuplicates, other.MethodDuplicates...)
	r.RecordDuplicates = append(r.RecordDuplicates, other.RecordDuplicates...)
	r.Diagnostics = append(r.Diagnostics, other.Diagnostics...)
}

// HasConflicts reports whether any duplicate was found.
func (r *Result) HasConflicts() bool {
	return len(r.MethodDuplicates) > 0 || len(r.RecordDuplicates) > 0
}

// Failed reports whether the run should exit non-zero. With strict set,
// parse failures count as failures too.
func (r *Result) Failed(strict bool) bool {
	if r.HasConflicts() {
		return true
	}
	if !strict {
		return false
	}
	for _, d := range r.Diagnostics {
		if d.Kind == ParseFailure {
			return true
		}
	}
	return false
}
