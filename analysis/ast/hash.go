package ast

import (
	"github.com/cs-au-dk/restruct/utils"
)

// Hash fingerprints a tree. Structurally equal trees hash equally, so the
// hash can be used to compare the output of repeated runs.
func Hash(n Node) uint32 {
	switch n := n.(type) {
	case *Sequence:
		hs := []uint32{utils.HashString("seq")}
		if n != nil {
			for _, m := range n.Nodes {
				hs = append(hs, Hash(m))
			}
		}
		return utils.HashCombine(hs...)
	case *Statement:
		return utils.HashCombine(utils.HashString("stmt"), uint32(n.Kind), utils.HashString(n.Text))
	case *If:
		return utils.HashCombine(utils.HashString("if"), utils.HashString(n.Cond.String()), Hash(n.Then), Hash(n.Else))
	case *Switch:
		hs := []uint32{utils.HashString("switch"), utils.HashString(n.Discr.String()), uint32(n.Ty)}
		for _, arm := range n.Arms {
			for _, v := range arm.Values {
				hs = append(hs, utils.HashString(v.String()))
			}
			hs = append(hs, Hash(arm.Body))
		}
		return utils.HashCombine(append(hs, Hash(n.Default))...)
	case *Loop:
		return utils.HashCombine(utils.HashString("loop"), Hash(n.Body))
	case *Break:
		return utils.HashCombine(utils.HashString("break"), uint32(n.Level))
	case *Continue:
		return utils.HashCombine(utils.HashString("continue"), uint32(n.Level))
	case *Return:
		return utils.HashString("return")
	case *Abort:
		return utils.HashCombine(utils.HashString("abort"), uint32(n.Kind), utils.HashString(n.Name))
	}
	return 0
}
