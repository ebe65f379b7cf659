package sema

import "github.com/penguin-lang/penguinc/pkg/utils"

// Scope is an ordered mapping from identifier to Symbol, plus a parent
// pointer. A child scope never mutates its parent; name lookup walks
// upward. Nested scopes are pushed on procedure entry and on statement
// blocks (if/loop bodies).
type Scope struct {
	parent  *Scope
	symbols utils.OrderedMap[string, Symbol]
}

// NewRootScope returns the program's root scope, pre-populated with the
// builtin hardware namespace (display/input/control) per §6.
func NewRootScope() *Scope {
	s := &Scope{symbols: utils.NewOrderedMap[string, Symbol]()}
	for name, sym := range Builtins() {
		s.symbols.Set(name, sym)
	}
	return s
}

// Push returns a new child scope of s.
func Push(parent *Scope) *Scope {
	return &Scope{parent: parent, symbols: utils.NewOrderedMap[string, Symbol]()}
}

// DeclaredHere reports whether name is bound directly in s, without walking
// to the parent — used to detect same-scope redeclaration.
func (s *Scope) DeclaredHere(name string) bool {
	return s.symbols.Has(name)
}

// Declare binds name to sym in s. Callers must check DeclaredHere first;
// Declare always overwrites (shadowing in an inner scope is legal and is
// exactly this: a fresh child Scope's Declare never touches the parent's
// binding).
func (s *Scope) Declare(name string, sym Symbol) {
	s.symbols.Set(name, sym)
}

// Resolve looks up name in s, then each ancestor in turn.
func (s *Scope) Resolve(name string) (Symbol, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		if sym, ok := scope.symbols.Get(name); ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// ScopeStack tracks the currently-open chain of scopes during the check
// pass, mirroring the teacher's push/pop scope-stack idiom (pkg/jack's
// ScopeTable) generalized from per-VarType stacks to a single parent-linked
// chain, since penguin has no field/static/this distinction to track. The
// open-scope history itself is kept in a utils.Stack[*Scope] rather than a
// bare pointer, so Pop can't walk past the root and the innermost-scope
// lookup is the same Top() the teacher's own stack container exposes.
type ScopeStack struct {
	frames utils.Stack[*Scope]
}

// NewScopeStack returns a ScopeStack rooted at root.
func NewScopeStack(root *Scope) *ScopeStack {
	s := &ScopeStack{frames: utils.NewStack[*Scope]()}
	s.frames.Push(root)
	return s
}

// Push opens a new nested scope, child of the current innermost one.
func (s *ScopeStack) Push() {
	parent, _ := s.frames.Top() // the root frame is never popped, so Top always succeeds
	s.frames.Push(Push(parent))
}

// Pop closes the innermost scope, returning to its parent. Popping the root
// frame is a no-op: the root scope outlives the whole analysis.
func (s *ScopeStack) Pop() {
	if s.frames.Count() > 1 {
		s.frames.Pop()
	}
}

// Current returns the innermost open scope.
func (s *ScopeStack) Current() *Scope {
	top, _ := s.frames.Top()
	return top
}
