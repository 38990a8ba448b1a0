package structure

import (
	"github.com/benbjohnson/immutable"

	"github.com/cs-au-dk/restruct/analysis/ast"
	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/utils"
)

// frame is an open loop: jumps to its header continue the loop, jumps to its
// follow break out of it.
type frame struct {
	header    cfg.BlockID
	follow    cfg.BlockID
	hasFollow bool
}

// context is the position of the structurer in the tree being built. It is
// persistent: extending it for a nested construct leaves the caller's copy intact.
type context struct {
	// loops holds the open loops, outermost first.
	loops *immutable.List[frame]
	// headers and follows map blocks to the index of the innermost open loop
	// they head or follow.
	headers *immutable.Map[cfg.BlockID, int]
	follows *immutable.Map[cfg.BlockID, int]

	// cont is the block the enclosing construct continues with. Reaching it
	// completes the current subtree normally.
	cont    cfg.BlockID
	hasCont bool
}

func rootContext() context {
	return context{
		loops:   immutable.NewList[frame](),
		headers: utils.NewIntMap[cfg.BlockID, int](),
		follows: utils.NewIntMap[cfg.BlockID, int](),
	}
}

func (c context) depth() int {
	return c.loops.Len()
}

// enter opens a loop. Loop bodies never complete normally, so the inner
// context has no continuation.
func (c context) enter(f frame) context {
	i := c.loops.Len()
	inner := context{
		loops:   c.loops.Append(f),
		headers: c.headers.Set(f.header, i),
		follows: c.follows,
	}
	if f.hasFollow {
		inner.follows = c.follows.Set(f.follow, i)
	}
	return inner
}

func (c context) continueWith(b cfg.BlockID) context {
	c.cont, c.hasCont = b, true
	return c
}

func (c context) isOpen(h cfg.BlockID) bool {
	_, ok := c.headers.Get(h)
	return ok
}

// jump resolves a control transfer to b without structuring b. It reports
// false when b has to be structured in place.
func (c context) jump(b cfg.BlockID) (leaf ast.Node, ok bool) {
	if c.hasCont && b == c.cont {
		return nil, true
	}
	if i, found := c.headers.Get(b); found {
		return &ast.Continue{Level: c.depth() - 1 - i}, true
	}
	if i, found := c.follows.Get(b); found {
		return &ast.Break{Level: c.depth() - 1 - i}, true
	}
	return nil, false
}
