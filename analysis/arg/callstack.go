package arg

import (
	"strings"

	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/utils"

	"github.com/benbjohnson/immutable"
)

type frame struct {
	function   string
	returnSite *cfa.Node
}

// CallStack is a persistent stack of pending call frames, innermost frame
// last. The nil call stack is the empty stack of the entry function.
type CallStack struct {
	frames *immutable.List[frame]
}

// Push enters the callee, returning to returnSite once it exits.
func (cs *CallStack) Push(callee string, returnSite *cfa.Node) *CallStack {
	frames := immutable.NewList[frame]()
	if cs != nil {
		frames = cs.frames
	}
	return &CallStack{frames.Append(frame{callee, returnSite})}
}

// Pop leaves the current function.
func (cs *CallStack) Pop() *CallStack {
	if cs.Depth() <= 1 {
		return nil
	}
	return &CallStack{cs.frames.Slice(0, cs.frames.Len()-1)}
}

func (cs *CallStack) top() (frame, bool) {
	if cs.Depth() == 0 {
		return frame{}, false
	}
	return cs.frames.Get(cs.frames.Len() - 1), true
}

// ReturnSite is the location at which the current function returns.
func (cs *CallStack) ReturnSite() *cfa.Node {
	f, _ := cs.top()
	return f.returnSite
}

func (cs *CallStack) Depth() int {
	if cs == nil {
		return 0
	}
	return cs.frames.Len()
}

// Contains checks whether the function has a pending frame.
func (cs *CallStack) Contains(function string) (found bool) {
	cs.forEach(func(f frame) {
		found = found || f.function == function
	})
	return
}

// forEach visits the frames from the innermost outwards.
func (cs *CallStack) forEach(do func(frame)) {
	if cs == nil {
		return
	}
	it := cs.frames.Iterator()
	for it.Last(); !it.Done(); {
		_, f := it.Prev()
		do(f)
	}
}

func (cs *CallStack) Equal(o *CallStack) bool {
	if cs.Depth() != o.Depth() {
		return false
	}
	if cs.Depth() == 0 || cs.frames == o.frames {
		return true
	}
	for i := 0; i < cs.frames.Len(); i++ {
		if cs.frames.Get(i).returnSite != o.frames.Get(i).returnSite {
			return false
		}
	}
	return true
}

func (cs *CallStack) Hash() uint32 {
	hashes := []uint32{}
	cs.forEach(func(f frame) {
		hashes = append(hashes, f.returnSite.Hash())
	})
	return utils.HashCombine(hashes...)
}

func (cs *CallStack) String() string {
	strs := []string{}
	cs.forEach(func(f frame) {
		strs = append(strs, f.function+"@"+f.returnSite.String())
	})
	return "[" + strings.Join(strs, " ") + "]"
}
