package hint

import (
	"fmt"

	"codeberg.org/mutker/powerhintd/internal/errors"
	"github.com/BurntSushi/toml"
)

// NodeTypeFile is the built-in node type writing values to a file path.
const NodeTypeFile = "file"

// Catalog describes every node, hint and session profile the backend knows.
type Catalog struct {
	Nodes    []NodeSpec    `toml:"nodes"`
	Hints    []HintSpec    `toml:"hints"`
	Profiles []ProfileSpec `toml:"profiles"`
}

// NodeSpec is a tunable. Values are ordered by priority: a lower index wins
// when several hints request the node at once.
type NodeSpec struct {
	Name         string   `toml:"name"`
	Type         string   `toml:"type"`
	Path         string   `toml:"path"`
	Values       []string `toml:"values"`
	DefaultIndex int      `toml:"default_index"`
	ResetOnInit  bool     `toml:"reset_on_init"`
}

// HintSpec maps a hint name to node requests. A hint without actions is
// still a valid, activatable name.
type HintSpec struct {
	Name    string       `toml:"name"`
	Actions []ActionSpec `toml:"actions"`
}

type ActionSpec struct {
	Node       string `toml:"node"`
	ValueIndex int    `toml:"value_index"`
}

// ProfileSpec is a session tuning profile.
type ProfileSpec struct {
	Name                 string `toml:"name"`
	ReportingRateLimitNs int64  `toml:"reporting_rate_limit_ns"`
}

// LoadCatalog reads a catalog from a TOML file.
func LoadCatalog(path string) (*Catalog, error) {
	errFactory := errors.New()

	cat := &Catalog{}
	if _, err := toml.DecodeFile(path, cat); err != nil {
		return nil, errFactory.Wrap(ErrCatalogRead, err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	return cat, nil
}

// ParseCatalog decodes a catalog from TOML text.
func ParseCatalog(data string) (*Catalog, error) {
	errFactory := errors.New()

	cat := &Catalog{}
	if _, err := toml.Decode(data, cat); err != nil {
		return nil, errFactory.Wrap(ErrCatalogRead, err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	return cat, nil
}

// Validate checks names are unique and every action is in range.
func (c *Catalog) Validate() error {
	errFactory := errors.New()
	invalid := func(format string, args ...any) error {
		return errFactory.WithData(ErrCatalogInvalid, fmt.Sprintf(format, args...))
	}

	nodes := make(map[string]NodeSpec, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.Name == "" {
			return invalid("node without name")
		}
		if _, dup := nodes[n.Name]; dup {
			return invalid("duplicate node %q", n.Name)
		}
		if len(n.Values) == 0 {
			return invalid("node %q has no values", n.Name)
		}
		if n.DefaultIndex < 0 || n.DefaultIndex >= len(n.Values) {
			return invalid("node %q default_index %d out of range", n.Name, n.DefaultIndex)
		}
		nodes[n.Name] = n
	}

	hints := make(map[string]bool, len(c.Hints))
	for _, h := range c.Hints {
		if h.Name == "" {
			return invalid("hint without name")
		}
		if hints[h.Name] {
			return invalid("duplicate hint %q", h.Name)
		}
		hints[h.Name] = true

		for _, a := range h.Actions {
			n, ok := nodes[a.Node]
			if !ok {
				return invalid("hint %q references unknown node %q", h.Name, a.Node)
			}
			if a.ValueIndex < 0 || a.ValueIndex >= len(n.Values) {
				return invalid("hint %q value_index %d out of range for node %q", h.Name, a.ValueIndex, a.Node)
			}
		}
	}

	profiles := make(map[string]bool, len(c.Profiles))
	for _, p := range c.Profiles {
		if p.Name == "" || profiles[p.Name] {
			return invalid("profile name %q empty or duplicated", p.Name)
		}
		profiles[p.Name] = true
	}

	return nil
}
