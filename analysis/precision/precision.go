// Package precision describes which memory locations the value analysis
// tracks at each program location.
package precision

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/utils"
	i "github.com/cs-au-dk/cegar/utils/indenter"
	"github.com/cs-au-dk/cegar/utils/tree"

	"github.com/pkg/errors"
)

// Kind tags precisions with the analysis they belong to. A composite
// precision holds at most one precision of each kind.
type Kind int

const (
	LocationKind Kind = iota
	ValueKind
)

func (k Kind) String() string {
	switch k {
	case LocationKind:
		return "location"
	case ValueKind:
		return "value"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Precision is implemented by the precisions of all analyses.
type Precision interface {
	Kind() Kind
	String() string
}

// Scope determines the granularity at which tracked memory locations are
// recorded.
type Scope int

const (
	// LocationScope tracks memory locations at individual program locations.
	LocationScope Scope = iota
	// FunctionScope tracks a memory location at every program location of the
	// function where it was found relevant.
	FunctionScope
)

// ParseScope decodes the configuration name of a scope.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "location":
		return LocationScope, nil
	case "function":
		return FunctionScope, nil
	}
	return LocationScope, errors.Errorf("unknown precision scope %q", s)
}

func (s Scope) String() string {
	if s == FunctionScope {
		return "function"
	}
	return "location"
}

// key identifies the program points sharing a set of tracked locations.
type key struct {
	node     int
	function string
}

func (k key) Hash() uint32 {
	return utils.HashCombine(utils.HashInt(k.node), utils.HashString(k.function))
}

func (k key) Equal(o key) bool {
	return k == o
}

func (k key) String() string {
	if k.function != "" {
		return k.function
	}
	return fmt.Sprintf("N%d", k.node)
}

// VariablePrecision is the precision of the value analysis: an immutable
// mapping from program points to the memory locations tracked there.
type VariablePrecision struct {
	scope   Scope
	tracked tree.Tree[key, memloc.Set]
}

// NewVariablePrecision creates the initial precision, which tracks nothing.
func NewVariablePrecision(scope Scope) VariablePrecision {
	return VariablePrecision{
		scope:   scope,
		tracked: tree.NewTree[key, memloc.Set](utils.HashableHasher[key]()),
	}
}

func (VariablePrecision) Kind() Kind {
	return ValueKind
}

func (p VariablePrecision) Scope() Scope {
	return p.scope
}

func (p VariablePrecision) keyOf(n *cfa.Node) key {
	if p.scope == FunctionScope {
		return key{node: -1, function: n.Function()}
	}
	return key{node: n.ID()}
}

// TrackedAt returns the memory locations tracked at the program location.
func (p VariablePrecision) TrackedAt(n *cfa.Node) memloc.Set {
	s, _ := p.tracked.Lookup(p.keyOf(n))
	return s
}

// IsTracking checks whether the memory location is tracked at the program
// location.
func (p VariablePrecision) IsTracking(n *cfa.Node, l memloc.MemoryLocation) bool {
	return p.TrackedAt(n).Contains(l)
}

func unionSets(a, b memloc.Set) (memloc.Set, bool) {
	if a.Equal(b) {
		return b, true
	}
	return a.Union(b), false
}

// WithIncrement extends the precision with the increment. The result tracks
// everything the receiver tracks.
func (p VariablePrecision) WithIncrement(inc Increment) VariablePrecision {
	res := p
	for n, ls := range inc {
		res.tracked = res.tracked.InsertOrMerge(p.keyOf(n), ls, unionSets)
	}
	return res
}

// Join computes the point-wise union of two precisions with the same scope.
func (p VariablePrecision) Join(o VariablePrecision) VariablePrecision {
	res := p
	res.tracked = p.tracked.Merge(o.tracked, unionSets)
	return res
}

// Includes checks whether every location tracked by o is tracked by p.
func (p VariablePrecision) Includes(o VariablePrecision) bool {
	return p.tracked.Includes(o.tracked, memloc.Set.Leq)
}

func (p VariablePrecision) Equal(o VariablePrecision) bool {
	return p.scope == o.scope && p.tracked.Equal(o.tracked, memloc.Set.Equal)
}

// Size is the total number of (program point, memory location) pairs.
func (p VariablePrecision) Size() (size int) {
	p.tracked.ForEach(func(_ key, ls memloc.Set) {
		size += ls.Size()
	})
	return
}

// Variables returns every memory location tracked somewhere.
func (p VariablePrecision) Variables() memloc.Set {
	res := memloc.NewSet()
	p.tracked.ForEach(func(_ key, ls memloc.Set) {
		res = res.Union(ls)
	})
	return res
}

func (p VariablePrecision) String() string {
	if p.Size() == 0 {
		return "{}"
	}
	return p.tracked.String()
}

// LocationPrecision is the precision of the location analysis, which is
// always exact.
type LocationPrecision struct{}

func (LocationPrecision) Kind() Kind {
	return LocationKind
}

func (LocationPrecision) String() string {
	return "location"
}

// Composite holds one precision per analysis kind.
type Composite struct {
	components []Precision
}

// NewComposite creates a composite precision. Later components replace
// earlier components of the same kind.
func NewComposite(ps ...Precision) Composite {
	c := Composite{}
	for _, p := range ps {
		c = c.Replace(p)
	}
	return c
}

// Get returns the component of the given kind.
func (c Composite) Get(kind Kind) (Precision, bool) {
	for _, p := range c.components {
		if p.Kind() == kind {
			return p, true
		}
	}
	return nil, false
}

// Value returns the value analysis component. A composite without one
// tracks nothing.
func (c Composite) Value() VariablePrecision {
	if p, ok := c.Get(ValueKind); ok {
		return p.(VariablePrecision)
	}
	return NewVariablePrecision(LocationScope)
}

// Replace substitutes the component with the same kind as p, leaving all
// other components in place. If no such component exists p is added.
func (c Composite) Replace(p Precision) Composite {
	components := make([]Precision, 0, len(c.components)+1)
	replaced := false
	for _, q := range c.components {
		if q.Kind() == p.Kind() {
			components = append(components, p)
			replaced = true
		} else {
			components = append(components, q)
		}
	}
	if !replaced {
		components = append(components, p)
	}
	return Composite{components}
}

func (c Composite) String() string {
	strs := make([]string, 0, len(c.components))
	for _, p := range c.components {
		strs = append(strs, p.Kind().String()+": "+p.String())
	}
	return i.Indenter().Start("⟨").NestStringsSep(",", strs...).End("⟩")
}

// Increment maps program locations to memory locations that should become
// tracked there.
type Increment map[*cfa.Node]memloc.Set

// Add records that l should be tracked at n.
func (inc Increment) Add(n *cfa.Node, l memloc.MemoryLocation) {
	inc[n] = inc[n].Add(l)
}

// AddAll merges another increment into the receiver.
func (inc Increment) AddAll(o Increment) {
	for n, ls := range o {
		inc[n] = inc[n].Union(ls)
	}
}

// Size is the total number of (program location, memory location) pairs.
func (inc Increment) Size() (size int) {
	for _, ls := range inc {
		size += ls.Size()
	}
	return
}

func (inc Increment) IsEmpty() bool {
	return inc.Size() == 0
}

// Variables returns every memory location mentioned by the increment.
func (inc Increment) Variables() memloc.Set {
	res := memloc.NewSet()
	for _, ls := range inc {
		res = res.Union(ls)
	}
	return res
}

// Nodes returns the program locations of the increment ordered by ID.
func (inc Increment) Nodes() []*cfa.Node {
	nodes := make([]*cfa.Node, 0, len(inc))
	for n := range inc {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID() < nodes[j].ID()
	})
	return nodes
}

func (inc Increment) String() string {
	strs := []string{}
	for _, n := range inc.Nodes() {
		strs = append(strs, fmt.Sprintf("%s ↦ %s", n, inc[n]))
	}
	return "{" + strings.Join(strs, ", ") + "}"
}
