// Package document wraps YAML world and model documents. It keeps the raw
// node tree so structural faults (wrong kind, missing key) can be reported
// with the exact document location instead of a generic decode error.
package document

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigError reports malformed or missing declarative content in a world or
// model document. The underlying cause, when there is one, is wrapped.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Errorf builds a ConfigError with a formatted message and no cause.
func Errorf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// Node is a single node of a loaded document.
type Node struct {
	raw  *yaml.Node
	file string
}

// Load parses the YAML document at path and returns its root node.
func Load(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("error loading %q", path), Err: err}
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("error parsing %q", path), Err: err}
	}
	if len(root.Content) == 0 {
		return nil, Errorf("empty document %q", path)
	}
	return &Node{raw: root.Content[0], file: path}, nil
}

// File returns the path of the document this node was loaded from.
func (n *Node) File() string { return n.file }

// Line returns the 1-based source line of the node.
func (n *Node) Line() int { return n.raw.Line }

func (n *Node) IsMapping() bool  { return n.raw.Kind == yaml.MappingNode }
func (n *Node) IsSequence() bool { return n.raw.Kind == yaml.SequenceNode }
func (n *Node) IsScalar() bool   { return n.raw.Kind == yaml.ScalarNode }

// Get returns the value node for key, or nil when n is not a mapping or the
// key is absent.
func (n *Node) Get(key string) *Node {
	if n == nil || n.raw.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.raw.Content); i += 2 {
		if n.raw.Content[i].Value == key {
			return &Node{raw: n.raw.Content[i+1], file: n.file}
		}
	}
	return nil
}

// Entries returns the child nodes of a sequence, or nil for any other kind.
func (n *Node) Entries() []*Node {
	if n == nil || n.raw.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]*Node, len(n.raw.Content))
	for i, c := range n.raw.Content {
		out[i] = &Node{raw: c, file: n.file}
	}
	return out
}

// Len returns the number of entries of a sequence node, zero otherwise.
func (n *Node) Len() int {
	if n == nil || n.raw.Kind != yaml.SequenceNode {
		return 0
	}
	return len(n.raw.Content)
}

// AsString returns the scalar string value of the node.
func (n *Node) AsString() (string, bool) {
	if n == nil || n.raw.Kind != yaml.ScalarNode {
		return "", false
	}
	var s string
	if err := n.raw.Decode(&s); err != nil {
		return "", false
	}
	return s, true
}

// AsFloat returns the scalar numeric value of the node.
func (n *Node) AsFloat() (float64, bool) {
	if n == nil || n.raw.Kind != yaml.ScalarNode {
		return 0, false
	}
	var f float64
	if err := n.raw.Decode(&f); err != nil {
		return 0, false
	}
	return f, true
}

// Decode unmarshals the node into out using yaml struct tags.
func (n *Node) Decode(out interface{}) error {
	if n == nil {
		return Errorf("cannot decode absent node")
	}
	if err := n.raw.Decode(out); err != nil {
		return &ConfigError{
			Msg: fmt.Sprintf("error decoding %s line %d", n.file, n.raw.Line),
			Err: err,
		}
	}
	return nil
}

// Pose reads a 3-element numeric sequence (x, y, heading) from the node.
func (n *Node) Pose() ([3]float64, bool) {
	var pose [3]float64
	if n == nil || n.raw.Kind != yaml.SequenceNode || len(n.raw.Content) != 3 {
		return pose, false
	}
	for i, c := range n.raw.Content {
		child := Node{raw: c, file: n.file}
		f, ok := child.AsFloat()
		if !ok {
			return pose, false
		}
		pose[i] = f
	}
	return pose, true
}
