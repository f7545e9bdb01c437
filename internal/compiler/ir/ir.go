// Package ir defines the flat intermediate representation that block
// flow analysis (C6) produces and that contract/file pre-processing
// (C7/C8) and emission (C9/C10) consume. Grounded on original_source's
// pre_processing/block_flow.rs (BlockFlow/BlockFlowItem and friends),
// generalized so block and contract references carry plain int ids
// instead of the original's generic label type (spec §9 design note:
// "model cross-references as integer ids into a flat vector").
package ir

import (
	"github.com/meplang/meplangc/internal/compiler/attribute"
	"github.com/meplang/meplangc/internal/compiler/word"
	"github.com/meplang/meplangc/pkg/errors"
)

// PushKind distinguishes the three things a push/rpush/lpush argument
// can resolve to.
type PushKind int

const (
	PushConstant PushKind = iota
	PushBlockPc
	PushBlockSize
)

// Push is one push/rpush/lpush block item, already resolved against
// constants/blocks/compile-variables but not yet placed (its final
// byte width depends on pass 1/2 of the emitter).
type Push struct {
	Kind        PushKind
	Constant    word.Word // PushConstant
	BlockID     int       // PushBlockPc, PushBlockSize: target block id (pre-remap)
	RightPad    bool      // true for push/rpush, false for lpush
	Attrs       *attribute.Attributes
}

// ItemKind discriminates the five shapes a flow item can take.
type ItemKind int

const (
	ItemBytes ItemKind = iota
	ItemContractCode
	ItemPush
	ItemStarRef // *name, replaced by the referenced block's items during inlining (C7)
	ItemEspRef  // &name, replaced by the referenced abstract block's items during inlining (C7)
)

// Item is one element of a block's flattened instruction stream.
type Item struct {
	Kind       ItemKind
	Bytes      []byte // ItemBytes: opcode byte or literal hex bytes, possibly coalesced
	ContractID int    // ItemContractCode: target contract id
	Push       Push   // ItemPush
	RefBlockID int    // ItemStarRef, ItemEspRef: target block id
	Span       errors.Span
}

// BlockFlow is the analyzed, but not yet inlined or placed, form of
// one parsed block (spec §4.5).
type BlockFlow struct {
	BlockID    int
	Abstract   bool
	Items      []Item
	EndAttrs   *attribute.Attributes // accumulator state at the end of the block body
	StrongDeps []int                 // block ids referenced via * or &, in first-seen order
	WeakDeps   []int                 // block ids referenced only via .pc/.size, in first-seen order
}

// AppendBytes appends b to the last item if it is already an
// ItemBytes run, else starts a new one. Mirrors original_source's
// append_or_create_bytes helper, which coalesces adjacent raw bytes
// into a single Bytes item so the emitter doesn't pay a hole/relocation
// cost for literal data.
func AppendBytes(items []Item, b ...byte) []Item {
	if n := len(items); n > 0 && items[n-1].Kind == ItemBytes {
		items[n-1].Bytes = append(items[n-1].Bytes, b...)
		return items
	}
	return append(items, Item{Kind: ItemBytes, Bytes: append([]byte(nil), b...)})
}
