package ai

// Status is the outcome of ticking a node.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "running"
	}
}

// Node is one step of a decision tree. Recovery and crisis handling build
// their escalation ladders out of these.
type Node interface {
	Tick(ctx *AIContext) Status
}

// NodeFunc adapts a function to Node.
type NodeFunc func(ctx *AIContext) Status

func (f NodeFunc) Tick(ctx *AIContext) Status { return f(ctx) }

// Selector tries children in order and stops at the first that does not fail.
type Selector struct {
	Children []Node
}

func (s *Selector) Tick(ctx *AIContext) Status {
	for _, c := range s.Children {
		if st := c.Tick(ctx); st != StatusFailure {
			return st
		}
	}
	return StatusFailure
}

// Sequence runs children in order and stops at the first that does not succeed.
type Sequence struct {
	Children []Node
}

func (s *Sequence) Tick(ctx *AIContext) Status {
	for _, c := range s.Children {
		if st := c.Tick(ctx); st != StatusSuccess {
			return st
		}
	}
	return StatusSuccess
}

// Cond succeeds while pred holds.
func Cond(pred func(*AIContext) bool) Node {
	return Do(pred)
}

// Do wraps an action that reports whether it took effect.
func Do(fn func(*AIContext) bool) Node {
	return NodeFunc(func(ctx *AIContext) Status {
		if fn(ctx) {
			return StatusSuccess
		}
		return StatusFailure
	})
}

// Guarded ticks child only while cond holds.
func Guarded(cond func(*AIContext) bool, child Node) Node {
	return &Sequence{Children: []Node{Cond(cond), child}}
}

// BehaviorTree is the root of a tree. An empty tree fails.
type BehaviorTree struct {
	Root Node
}

func (bt *BehaviorTree) Tick(ctx *AIContext) Status {
	if bt == nil || bt.Root == nil {
		return StatusFailure
	}
	return bt.Root.Tick(ctx)
}
