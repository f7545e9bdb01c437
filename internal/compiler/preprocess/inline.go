package preprocess

import (
	"github.com/meplang/meplangc/internal/compiler/ir"
	"github.com/meplang/meplangc/pkg/errors"
)

// inliner expands `*`/`&` references into their target block's own
// flow items, recursively, enforcing the spec §4.6 step 7 rules: a
// non-abstract block may be spliced via `*` at most once across the
// whole contract, and `*` may never appear while inside an abstract
// block's inlined body.
//
// expand returns, alongside the flattened items, a position map keyed
// by block id with Start/End local to the returned slice; callers
// splicing that slice into their own buffer shift every entry by
// their own running offset before merging it upward, so that by the
// time a root block's top-level expand call returns, every spliced
// block id carries a position window in that root's final coordinate
// space (spec §4.6 step 8's id-to-position remapping).
type inliner struct {
	flows         map[int]*ir.BlockFlow
	starSpliced   map[int]bool
	abstractStack []int
}

func newInliner(flows map[int]*ir.BlockFlow) *inliner {
	return &inliner{flows: flows, starSpliced: make(map[int]bool)}
}

func (in *inliner) expand(rootIdx int, items []ir.Item) ([]ir.Item, map[int]Position, error) {
	var out []ir.Item
	positions := make(map[int]Position)

	for _, it := range items {
		switch it.Kind {
		case ir.ItemStarRef:
			if len(in.abstractStack) > 0 {
				return nil, nil, errors.New(errors.StarInsideAbstract, it.Span,
					"`*` cannot appear inside an abstract block's inlined body")
			}
			if in.starSpliced[it.RefBlockID] {
				return nil, nil, errors.New(errors.StarTwice, it.Span,
					"block referenced by `*` more than once across the contract")
			}
			in.starSpliced[it.RefBlockID] = true

			start := len(out)
			expanded, child, err := in.expand(rootIdx, in.flows[it.RefBlockID].Items)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, expanded...)
			mergeShifted(positions, child, rootIdx, start)
			positions[it.RefBlockID] = Position{RootIndex: rootIdx, Start: start, End: start + len(expanded)}

		case ir.ItemEspRef:
			for _, s := range in.abstractStack {
				if s == it.RefBlockID {
					return nil, nil, errors.New(errors.RecursiveBlocks, it.Span,
						"abstract block recursively references itself")
				}
			}
			in.abstractStack = append(in.abstractStack, it.RefBlockID)
			start := len(out)
			expanded, child, err := in.expand(rootIdx, in.flows[it.RefBlockID].Items)
			in.abstractStack = in.abstractStack[:len(in.abstractStack)-1]
			if err != nil {
				return nil, nil, err
			}
			out = append(out, expanded...)
			mergeShifted(positions, child, rootIdx, start)
			if _, exists := positions[it.RefBlockID]; !exists {
				positions[it.RefBlockID] = Position{RootIndex: rootIdx, Start: start, End: start + len(expanded)}
			}

		default:
			out = append(out, it)
		}
	}
	return out, positions, nil
}

func mergeShifted(into, from map[int]Position, rootIdx, shift int) {
	for id, pos := range from {
		into[id] = Position{RootIndex: rootIdx, Start: pos.Start + shift, End: pos.End + shift}
	}
}
