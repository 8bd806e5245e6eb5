package hint

import (
	"os"
	"sort"
	"strings"
)

// Writer applies a node value to the device.
type Writer interface {
	Write(value string) error
}

// WriterFactory builds the Writer for a node of one type.
type WriterFactory func(spec NodeSpec) (Writer, error)

type fileWriter struct {
	path string
}

func newFileWriter(spec NodeSpec) (Writer, error) {
	return &fileWriter{path: spec.Path}, nil
}

func (w *fileWriter) Write(value string) error {
	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

type node struct {
	spec     NodeSpec
	writer   Writer
	requests map[string]int // hint name -> value index
	current  int            // -1 until the first write
}

func newNode(spec NodeSpec, w Writer) *node {
	return &node{
		spec:     spec,
		writer:   w,
		requests: map[string]int{},
		current:  -1,
	}
}

// target is the lowest requested index, or the default without requests.
func (n *node) target() int {
	if len(n.requests) == 0 {
		return n.spec.DefaultIndex
	}

	best := len(n.spec.Values)
	for _, idx := range n.requests {
		if idx < best {
			best = idx
		}
	}

	return best
}

// apply writes the target value when it differs from the last write.
func (n *node) apply() error {
	idx := n.target()
	if idx == n.current {
		return nil
	}
	if err := n.writer.Write(n.spec.Values[idx]); err != nil {
		return err
	}
	n.current = idx

	return nil
}

func (n *node) reset() error {
	n.current = -1
	return n.apply()
}

func (n *node) value() string {
	if n.current < 0 {
		return "<unset>"
	}

	return n.spec.Values[n.current]
}

func (n *node) requesters() string {
	names := make([]string, 0, len(n.requests))
	for name := range n.requests {
		names = append(names, name)
	}
	sort.Strings(names)

	return strings.Join(names, ",")
}
