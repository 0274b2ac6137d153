// Package pyliteral evaluates Python literal expressions from a tree-sitter
// syntax tree without executing anything.
//
// Only displays of literals are accepted: dicts, lists, tuples, sets,
// strings, numbers, True, False and None, optionally negated or
// parenthesized. Any other construct (names, calls, operators,
// comprehensions, f-strings) is rejected with ErrNotLiteral.
//
// Values map to Go as follows: str and bytes to string, int to int64,
// float to float64, bool to bool, None to nil, list/tuple/set to []any and
// dict to map[string]any (non-string keys are formatted with fmt.Sprint).
package pyliteral

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/dupcheck/internal/lang"
)

// ErrNotLiteral is returned for any construct outside the literal grammar.
var ErrNotLiteral = errors.New("not a literal")

const maxDepth = 100

// ParseExpression parses source as a Python module that must consist of a
// single expression statement and evaluates it.
func ParseExpression(ctx context.Context, source []byte) (any, error) {
	parser := lang.Python().NewParser()
	defer parser.Close()

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if bad := lang.FirstError(root); bad != nil {
		p := bad.StartPoint()
		return nil, fmt.Errorf("syntax error at line %d, column %d", p.Row+1, p.Column+1)
	}

	var stmt *sitter.Node
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		if stmt != nil {
			return nil, fmt.Errorf("%w: more than one statement", ErrNotLiteral)
		}
		stmt = child
	}
	if stmt == nil {
		return nil, fmt.Errorf("%w: empty source", ErrNotLiteral)
	}
	if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return nil, fmt.Errorf("%w: %s statement", ErrNotLiteral, stmt.Type())
	}
	return Eval(stmt.NamedChild(0), source)
}

// Eval evaluates a literal expression node.
func Eval(node *sitter.Node, source []byte) (any, error) {
	return eval(node, source, 0)
}

func eval(node *sitter.Node, source []byte, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting too deep", ErrNotLiteral)
	}

	switch node.Type() {
	case "string":
		return DecodeString(lang.NodeText(node, source))
	case "concatenated_string":
		var b strings.Builder
		for _, part := range elements(node) {
			if part.Type() != "string" {
				return nil, fmt.Errorf("%w: %s in string concatenation", ErrNotLiteral, part.Type())
			}
			s, err := DecodeString(lang.NodeText(part, source))
			if err != nil {
				return nil, err
			}
			b.WriteString(s)
		}
		return b.String(), nil
	case "integer":
		return parseInt(lang.NodeText(node, source))
	case "float":
		return parseFloat(lang.NodeText(node, source))
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "none":
		return nil, nil
	case "unary_operator":
		return evalUnary(node, source, depth)
	case "parenthesized_expression":
		inner := elements(node)
		if len(inner) != 1 {
			return nil, fmt.Errorf("%w: malformed parentheses", ErrNotLiteral)
		}
		return eval(inner[0], source, depth+1)
	case "list", "tuple", "set":
		items := elements(node)
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := eval(item, source, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case "dictionary":
		return evalDict(node, source, depth)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotLiteral, node.Type())
	}
}

func evalDict(node *sitter.Node, source []byte, depth int) (any, error) {
	out := make(map[string]any)
	for _, pair := range elements(node) {
		if pair.Type() != "pair" {
			return nil, fmt.Errorf("%w: %s in dict display", ErrNotLiteral, pair.Type())
		}
		keyNode := pair.ChildByFieldName("key")
		valueNode := pair.ChildByFieldName("value")
		if keyNode == nil || valueNode == nil {
			return nil, fmt.Errorf("%w: malformed dict entry", ErrNotLiteral)
		}
		key, err := eval(keyNode, source, depth+1)
		if err != nil {
			return nil, err
		}
		value, err := eval(valueNode, source, depth+1)
		if err != nil {
			return nil, err
		}
		if s, ok := key.(string); ok {
			out[s] = value
		} else {
			out[fmt.Sprint(key)] = value
		}
	}
	return out, nil
}

func evalUnary(node *sitter.Node, source []byte, depth int) (any, error) {
	op := node.ChildByFieldName("operator")
	arg := node.ChildByFieldName("argument")
	if op == nil || arg == nil {
		return nil, fmt.Errorf("%w: malformed unary expression", ErrNotLiteral)
	}
	sign := lang.NodeText(op, source)
	if sign != "-" && sign != "+" {
		return nil, fmt.Errorf("%w: unary %s", ErrNotLiteral, sign)
	}
	v, err := eval(arg, source, depth+1)
	if err != nil {
		return nil, err
	}
	switch n := v.(type) {
	case int64:
		if sign == "-" {
			return -n, nil
		}
		return n, nil
	case float64:
		if sign == "-" {
			return -n, nil
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%w: unary %s on %T", ErrNotLiteral, sign, v)
	}
}

// elements returns the named children of node, skipping comments.
func elements(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func parseInt(text string) (any, error) {
	clean := strings.ReplaceAll(text, "_", "")
	lower := strings.ToLower(clean)
	if strings.HasSuffix(lower, "j") || strings.HasSuffix(lower, "l") {
		return nil, fmt.Errorf("%w: integer %s", ErrNotLiteral, text)
	}
	// Python forbids leading zeros on decimals, Go would read them as octal.
	if len(clean) > 1 && clean[0] == '0' && lower[1] >= '0' && lower[1] <= '9' {
		if strings.Trim(clean, "0") != "" {
			return nil, fmt.Errorf("%w: integer %s", ErrNotLiteral, text)
		}
		return int64(0), nil
	}
	n, err := strconv.ParseInt(clean, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: integer %s: %v", ErrNotLiteral, text, err)
	}
	return n, nil
}

func parseFloat(text string) (any, error) {
	clean := strings.ReplaceAll(text, "_", "")
	if strings.HasSuffix(strings.ToLower(clean), "j") {
		return nil, fmt.Errorf("%w: complex %s", ErrNotLiteral, text)
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: float %s: %v", ErrNotLiteral, text, err)
	}
	return f, nil
}
