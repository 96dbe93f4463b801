package reference

import (
	"slices"

	"github.com/shopware/phpsymbols/internal/typestring"
)

type frameKind uint8

const (
	frameScope frameKind = iota
	frameBranch
)

type frame struct {
	kind frameKind
	vars map[string]string
	// branches are the popped child branches waiting to be pruned
	branches []*frame
}

func newFrame(kind frameKind) *frame {
	return &frame{kind: kind, vars: make(map[string]string)}
}

// VariableTable tracks the types of local variables during one reference pass.
// Scopes isolate function bodies; branches model conditional and loop bodies
// whose assignments are merged back once every sibling branch was read.
type VariableTable struct {
	stack []*frame
}

// NewVariableTable creates a table with one open scope for top-level code.
func NewVariableTable() *VariableTable {
	return &VariableTable{stack: []*frame{newFrame(frameScope)}}
}

func (v *VariableTable) top() *frame {
	return v.stack[len(v.stack)-1]
}

// PushScope opens a scope seeded with the current types of carry.
func (v *VariableTable) PushScope(carry ...string) {
	scope := newFrame(frameScope)
	for _, name := range carry {
		if t := v.GetType(name); t != "" {
			scope.vars[name] = t
		}
	}
	v.stack = append(v.stack, scope)
}

// PopScope closes the innermost scope together with any branch still open in it.
func (v *VariableTable) PopScope() {
	for len(v.stack) > 1 {
		popped := v.top()
		v.stack = v.stack[:len(v.stack)-1]
		if popped.kind == frameScope {
			return
		}
	}
}

// SetVariable records the type of name in the innermost frame.
func (v *VariableTable) SetVariable(name, t string) {
	if name == "" {
		return
	}
	v.top().vars[name] = t
}

// SetVariables records several variables at once.
func (v *VariableTable) SetVariables(vars map[string]string) {
	for name, t := range vars {
		v.SetVariable(name, t)
	}
}

// PushBranch opens a branch frame.
func (v *VariableTable) PushBranch() {
	v.stack = append(v.stack, newFrame(frameBranch))
}

// PopBranch closes the innermost branch and keeps it for PruneBranches.
func (v *VariableTable) PopBranch() {
	if len(v.stack) < 2 || v.top().kind != frameBranch {
		return
	}

	branch := v.top()
	v.stack = v.stack[:len(v.stack)-1]

	parent := v.top()
	parent.branches = append(parent.branches, branch)
}

// PruneBranches merges the variables of every popped sibling branch into the
// innermost frame. A variable ends up with the union of its type before the
// branches and the types each branch left it with.
func (v *VariableTable) PruneBranches() {
	current := v.top()
	branches := current.branches
	current.branches = nil

	for _, branch := range branches {
		for name, t := range branch.vars {
			if existing, ok := current.vars[name]; ok {
				current.vars[name] = typestring.Merge(existing, t)
				continue
			}
			current.vars[name] = typestring.Merge(v.GetType(name), t)
		}
	}
}

// GetType returns the type of name, searching from the innermost frame
// outwards up to and including the nearest scope.
func (v *VariableTable) GetType(name string) string {
	for i := len(v.stack) - 1; i >= 0; i-- {
		f := v.stack[i]
		if t, ok := f.vars[name]; ok {
			return t
		}
		if f.kind == frameScope {
			break
		}
	}
	return ""
}

// Names returns the sorted names of every variable visible in the innermost scope.
func (v *VariableTable) Names() []string {
	seen := make(map[string]bool)
	for i := len(v.stack) - 1; i >= 0; i-- {
		f := v.stack[i]
		for name := range f.vars {
			seen[name] = true
		}
		if f.kind == frameScope {
			break
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
