package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/dupcheck/internal/lang"
	"github.com/phobologic/dupcheck/internal/model"
	"github.com/phobologic/dupcheck/internal/pyliteral"
)

const (
	primaryNameAttr = "_name"
	inheritAttr     = "_inherit"
)

// ClassOptions configures class extraction.
type ClassOptions struct {
	// IgnoredInherits drops any class whose _inherit keys intersect it.
	IgnoredInherits []string
}

// ClassExtractor turns Python source into class descriptors.
// It owns a tree-sitter parser and must not be shared between goroutines.
type ClassExtractor struct {
	parser  *sitter.Parser
	query   *sitter.Query
	ignored map[string]struct{}
}

// NewClassExtractor creates an extractor with its own parser.
func NewClassExtractor(opts ClassOptions) (*ClassExtractor, error) {
	py := lang.Python()
	q, err := py.GetClassQuery()
	if err != nil {
		return nil, fmt.Errorf("class query: %w", err)
	}
	ignored := make(map[string]struct{}, len(opts.IgnoredInherits))
	for _, k := range opts.IgnoredInherits {
		ignored[k] = struct{}{}
	}
	return &ClassExtractor{parser: py.NewParser(), query: q, ignored: ignored}, nil
}

// Close releases the parser.
func (e *ClassExtractor) Close() {
	e.parser.Close()
}

// Classes returns the top-level classes of source that declare at least one
// model key. A file with syntax errors yields a *ParseError and no classes.
func (e *ClassExtractor) Classes(ctx context.Context, source []byte, file string) ([]*model.ClassDescriptor, error) {
	if len(source) == 0 {
		return nil, nil
	}

	tree, err := e.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &ParseError{File: file, Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if bad := lang.FirstError(root); bad != nil {
		p := bad.StartPoint()
		msg := "invalid syntax"
		if bad.IsMissing() {
			msg = fmt.Sprintf("missing %s", bad.Type())
		}
		return nil, &ParseError{File: file, Line: int(p.Row) + 1, Column: int(p.Column) + 1, Err: errors.New(msg)}
	}

	var classNodes []*sitter.Node
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(e.query, root)
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range match.Captures {
			if e.query.CaptureNameForId(c.Index) == "definition.class" {
				classNodes = append(classNodes, c.Node)
			}
		}
	}
	sort.Slice(classNodes, func(i, j int) bool {
		return classNodes[i].StartByte() < classNodes[j].StartByte()
	})

	var classes []*model.ClassDescriptor
	for _, node := range classNodes {
		if cd := e.class(node, source, file); cd != nil {
			classes = append(classes, cd)
		}
	}
	return classes, nil
}

func (e *ClassExtractor) class(node *sitter.Node, source []byte, file string) *model.ClassDescriptor {
	body := lang.PythonBody(node)
	if body == nil {
		return nil
	}

	var (
		primary  string
		inherits []string
		methods  []model.Method
	)
	methodIndex := make(map[string]int)

	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		switch stmt.Type() {
		case "expression_statement":
			for j := 0; j < int(stmt.NamedChildCount()); j++ {
				expr := stmt.NamedChild(j)
				if expr.Type() != "assignment" {
					continue
				}
				targets, value := unchainAssignment(expr, source)
				if value == nil {
					continue
				}
				for _, target := range targets {
					switch target {
					case primaryNameAttr:
						if s, ok := stringValue(value, source); ok {
							primary = s
						}
					case inheritAttr:
						if keys, ok := inheritValue(value, source); ok {
							inherits = keys
						}
					}
				}
			}
		case "function_definition", "decorated_definition":
			def := lang.PythonUnwrapDecorated(stmt)
			if def.Type() != "function_definition" {
				continue
			}
			nameNode := def.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := lang.NodeText(nameNode, source)
			p := nameNode.StartPoint()
			m := model.Method{
				Name:   name,
				Body:   Canonical(stmt, source),
				Line:   int(p.Row) + 1,
				Column: int(p.Column) + 1,
			}
			// A redefinition replaces the body but keeps the first position,
			// like a class namespace dict.
			if idx, ok := methodIndex[name]; ok {
				methods[idx].Body = m.Body
				continue
			}
			methodIndex[name] = len(methods)
			methods = append(methods, m)
		}
	}

	for _, k := range inherits {
		if _, skip := e.ignored[k]; skip {
			return nil
		}
	}

	keys := uniqueKeys(primary, inherits)
	if len(keys) == 0 {
		return nil
	}

	p := node.StartPoint()
	return &model.ClassDescriptor{
		Name:      lang.PythonClassName(node, source),
		ModelKeys: keys,
		Methods:   methods,
		File:      file,
		Line:      int(p.Row) + 1,
	}
}

// unchainAssignment flattens "a = b = value" into its target names and value.
// Non-identifier targets are left out.
func unchainAssignment(node *sitter.Node, source []byte) ([]string, *sitter.Node) {
	var targets []string
	cur := node
	for cur != nil && cur.Type() == "assignment" {
		if left := cur.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			targets = append(targets, lang.NodeText(left, source))
		}
		cur = cur.ChildByFieldName("right")
	}
	return targets, cur
}

func stringValue(node *sitter.Node, source []byte) (string, bool) {
	switch node.Type() {
	case "string", "concatenated_string":
	default:
		return "", false
	}
	v, err := pyliteral.Eval(node, source)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// inheritValue accepts a string or a list/tuple; non-string elements are skipped.
func inheritValue(node *sitter.Node, source []byte) ([]string, bool) {
	if s, ok := stringValue(node, source); ok {
		return []string{s}, true
	}
	switch node.Type() {
	case "list", "tuple":
	default:
		return nil, false
	}
	keys := []string{}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if s, ok := stringValue(node.NamedChild(i), source); ok {
			keys = append(keys, s)
		}
	}
	return keys, true
}

func uniqueKeys(primary string, inherits []string) []string {
	var keys []string
	seen := make(map[string]struct{})
	add := func(k string) {
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	add(primary)
	for _, k := range inherits {
		add(k)
	}
	return keys
}

// Canonical renders a definition as its token stream separated by single
// spaces. Comments and line continuations are dropped, string literals
// are re-quoted in one canonical style, trailing commas before a closing
// bracket and redundant parentheses are removed. Layout, quoting, comments
// and formatter rewrites do not affect equality. Identifiers are kept verbatim.
func Canonical(node *sitter.Node, source []byte) string {
	var toks []string
	var walk func(n, parent *sitter.Node)
	walk = func(n, parent *sitter.Node) {
		switch n.Type() {
		case "comment", "line_continuation":
			return
		case "string":
			toks = append(toks, canonicalString(lang.NodeText(n, source)))
			return
		case "parenthesized_expression":
			if inner := soleChild(n); inner != nil && redundantParens(inner, parent) {
				walk(inner, parent)
				return
			}
		}
		if n.ChildCount() == 0 {
			if t := lang.NodeText(n, source); t != "" {
				toks = append(toks, t)
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child.Type() == "," && trailingComma(n, i) {
				continue
			}
			walk(child, n)
		}
	}
	walk(node, nil)
	return strings.Join(toks, " ")
}

// Containers whose trailing comma carries no meaning.
var trailingCommaParents = map[string]bool{
	"argument_list": true,
	"parameters":    true,
	"list":          true,
	"dictionary":    true,
	"set":           true,
	"tuple":         true,
}

// trailingComma reports whether child i of n is a comma directly before
// the closing bracket. The comma of a one-element tuple is kept.
func trailingComma(n *sitter.Node, i int) bool {
	if !trailingCommaParents[n.Type()] {
		return false
	}
	for j := i + 1; j < int(n.ChildCount()); j++ {
		next := n.Child(j)
		switch next.Type() {
		case "comment":
			continue
		case ")", "]", "}":
			if n.Type() == "tuple" {
				return namedChildren(n) > 1
			}
			return true
		}
		return false
	}
	return false
}

// Expressions that bind at least as tightly as any operator.
var atomTypes = map[string]bool{
	"identifier":               true,
	"attribute":                true,
	"call":                     true,
	"subscript":                true,
	"string":                   true,
	"concatenated_string":      true,
	"integer":                  true,
	"float":                    true,
	"true":                     true,
	"false":                    true,
	"none":                     true,
	"list":                     true,
	"dictionary":               true,
	"set":                      true,
	"tuple":                    true,
	"parenthesized_expression": true,
	"list_comprehension":       true,
	"dictionary_comprehension": true,
	"set_comprehension":        true,
	"generator_expression":     true,
}

// Contexts where any expression other than yield or := stands alone.
var looseParents = map[string]bool{
	"return_statement":     true,
	"expression_statement": true,
	"assignment":           true,
	"augmented_assignment": true,
	"argument_list":        true,
	"keyword_argument":     true,
	"pair":                 true,
	"list":                 true,
	"set":                  true,
	"if_statement":         true,
	"elif_clause":          true,
	"while_statement":      true,
}

func redundantParens(inner, parent *sitter.Node) bool {
	if atomTypes[inner.Type()] {
		return true
	}
	if parent == nil || !looseParents[parent.Type()] {
		return false
	}
	switch inner.Type() {
	case "yield", "named_expression", "expression_list":
		return false
	}
	return true
}

// soleChild returns the only named child of n other than comments.
func soleChild(n *sitter.Node) *sitter.Node {
	var only *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		if only != nil {
			return nil
		}
		only = c
	}
	return only
}

func namedChildren(n *sitter.Node) int {
	count := 0
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() != "comment" {
			count++
		}
	}
	return count
}

func canonicalString(text string) string {
	v, err := pyliteral.DecodeString(text)
	if err != nil {
		return text
	}
	prefix := ""
	for _, c := range text {
		if c == 'b' || c == 'B' {
			prefix = "b"
		}
		if c == '\'' || c == '"' {
			break
		}
	}
	return prefix + strconv.Quote(v)
}
