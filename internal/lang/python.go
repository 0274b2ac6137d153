package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

func init() {
	Languages["python"] = &Language{
		Name:       "python",
		Extensions: []string{".py"},
		lang:       python.GetLanguage(),
	}
}

// Python returns the registered Python language.
func Python() *Language {
	return Languages["python"]
}

// PythonClassName returns the name of a class_definition node.
func PythonClassName(node *sitter.Node, source []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return NodeText(name, source)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "identifier" {
			return NodeText(child, source)
		}
	}
	return ""
}

// PythonUnwrapDecorated returns the definition wrapped by a decorated_definition,
// or node itself.
func PythonUnwrapDecorated(node *sitter.Node) *sitter.Node {
	if node.Type() != "decorated_definition" {
		return node
	}
	if def := node.ChildByFieldName("definition"); def != nil {
		return def
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition", "class_definition":
			return child
		}
	}
	return node
}

// PythonBody returns the block body of a class or function definition.
func PythonBody(def *sitter.Node) *sitter.Node {
	if body := def.ChildByFieldName("body"); body != nil {
		return body
	}
	for i := 0; i < int(def.NamedChildCount()); i++ {
		child := def.NamedChild(i)
		if child.Type() == "block" {
			return child
		}
	}
	return nil
}
