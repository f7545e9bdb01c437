// Package emit implements the bytecode emitter (C9): it walks a
// pre-processed file's contracts in dependency-first order, encodes
// each root block's items into bytes, fills the PUSH-preserving gap
// between blocks, and backpatches the BlockPc/BlockSize holes left by
// forward references. Grounded on original_source's
// compile/emit.rs (encode_push, fill_block_end, backpatch_holes).
package emit

import (
	"math/rand"

	"github.com/meplang/meplangc/internal/compiler/artifacts"
	"github.com/meplang/meplangc/internal/compiler/ir"
	"github.com/meplang/meplangc/internal/compiler/opcode"
	"github.com/meplang/meplangc/internal/compiler/preprocess"
	"github.com/meplang/meplangc/internal/compiler/settings"
	"github.com/meplang/meplangc/pkg/errors"
)

// holeKind distinguishes the two reasons a 2-byte slot is reserved in
// a contract's output buffer pending backpatching.
type holeKind int

const (
	holePc holeKind = iota
	holeSize
)

// hole is one reserved PUSH2 data slot awaiting its final value.
type hole struct {
	kind    holeKind
	offset  int // byte offset of the first of the two reserved bytes
	blockID int
	span    errors.Span
}

// blockAddr is the resolved {pc,size} of one block id within its
// contract's output buffer, whether that block is a standalone root
// region or a sub-range spliced into one (spec §4.6 step 8).
type blockAddr struct {
	pc   int
	size int
}

// compiled is one fully emitted and backpatched contract, kept around
// so later contracts in dependency order can splice its bytecode in
// via an ItemContractCode reference.
type compiled struct {
	artifacts *artifacts.ContractArtifacts
}

// Result holds every compiled contract's artifacts plus the metrics
// the caller (internal/compiler/metrics) folds into its counters.
type Result struct {
	Artifacts        *artifacts.Artifacts
	BlocksEmitted    int
	BytesEmitted     int
	HolesBackpatched int
}

// Emit runs C9 over every contract in f, in f.CompileOrder (dependency
// first, so an &name.code splice always finds its target already
// compiled), and returns the combined artifacts.
func Emit(f *preprocess.FileResult, st settings.Settings) (*Result, error) {
	rng := rand.New(rand.NewSource(1))

	byID := make(map[int]*compiled, len(f.CompileOrder))
	art := artifacts.New(f.ByID[f.EntryContractID].Name)
	res := &Result{Artifacts: art}

	for _, id := range f.CompileOrder {
		cr := f.ByID[id]
		ca, holesBackpatched, err := emitContract(cr, byID, st, rng)
		if err != nil {
			return nil, err
		}
		byID[id] = &compiled{artifacts: ca}
		art.Contracts[cr.Name] = ca
		res.BlocksEmitted += len(ca.Blocks)
		res.BytesEmitted += len(ca.Bytecode)
		res.HolesBackpatched += holesBackpatched
	}
	return res, nil
}

func emitContract(cr *preprocess.ContractResult, compiledByID map[int]*compiled, st settings.Settings, rng *rand.Rand) (*artifacts.ContractArtifacts, int, error) {
	var buf []byte
	var holes []hole
	addrs := make(map[int]blockAddr, len(cr.Positions))
	art := artifacts.NewContractArtifacts()

	for ri, rb := range cr.RootBlocks {
		starts := make([]int, len(rb.Items)+1)
		blockStart := len(buf)

		for ii, item := range rb.Items {
			starts[ii] = len(buf)
			var err error
			buf, holes, err = emitItem(buf, holes, item, compiledByID, st)
			if err != nil {
				return nil, 0, err
			}
		}
		starts[len(rb.Items)] = len(buf)

		// Resolve every block id spliced into this root at the
		// pre-filler item boundaries recorded above.
		for id, pos := range cr.Positions {
			if pos.RootIndex != ri {
				continue
			}
			addrs[id] = blockAddr{pc: starts[pos.Start], size: starts[pos.End] - starts[pos.Start]}
		}

		buf = fillBlockEnd(buf, blockStart, st.FillingPattern, rng)
		blockEnd := len(buf)

		// The root block's own artifact (and .pc/.size resolution)
		// uses the post-filler size: the filler is logically part of
		// the block it pads (spec §9, "Filling the end of a block").
		addrs[rb.BlockID] = blockAddr{pc: blockStart, size: blockEnd - blockStart}
		art.SetPC(rb.Name, blockStart)
		art.SetSize(rb.Name, blockEnd-blockStart)
	}

	for id, name := range cr.Names {
		if name == "" {
			continue
		}
		if _, ok := art.Blocks[name]; ok {
			continue // already recorded as a root block above
		}
		a, ok := addrs[id]
		if !ok {
			continue
		}
		art.SetPC(name, a.pc)
		art.SetSize(name, a.size)
	}

	for _, h := range holes {
		a, ok := addrs[h.blockID]
		if !ok {
			return nil, 0, errors.New(errors.UnknownName, h.span, "internal: no recorded address for block id %d", h.blockID)
		}
		var value int
		switch h.kind {
		case holePc:
			value = a.pc
		case holeSize:
			value = a.size
		}
		if value > 0xFFFF {
			return nil, 0, errors.New(errors.HoleOverflow, h.span,
				"address/size %d does not fit in a 2-byte PUSH2 slot", value)
		}
		buf[h.offset] = byte(value >> 8)
		buf[h.offset+1] = byte(value)
	}

	art.Bytecode = buf
	return art, len(holes), nil
}

func emitItem(buf []byte, holes []hole, item ir.Item, compiledByID map[int]*compiled, st settings.Settings) ([]byte, []hole, error) {
	switch item.Kind {
	case ir.ItemBytes:
		buf = append(buf, item.Bytes...)

	case ir.ItemContractCode:
		dep, ok := compiledByID[item.ContractID]
		if !ok {
			return nil, nil, errors.New(errors.UnknownName, item.Span,
				"internal: contract id %d not yet compiled", item.ContractID)
		}
		buf = append(buf, dep.artifacts.Bytecode...)

	case ir.ItemPush:
		switch item.Push.Kind {
		case ir.PushConstant:
			buf = appendConstantPush(buf, item.Push, st)
		case ir.PushBlockPc, ir.PushBlockSize:
			kind := holePc
			if item.Push.Kind == ir.PushBlockSize {
				kind = holeSize
			}
			offset := len(buf)
			buf = append(buf, opcode.PUSH0+2, 0x00, 0x00)
			holes = append(holes, hole{kind: kind, offset: offset + 1, blockID: item.Push.BlockID, span: item.Span})
		}

	default:
		return nil, nil, errors.New(errors.UnknownName, item.Span, "internal: unresolved item kind %d reached the emitter", item.Kind)
	}
	return buf, holes, nil
}

// appendConstantPush encodes one Push{Constant} item following spec
// §4.8's selection order: PUSH0 for a zero value when push0 is
// enabled, then opcode substitution under an active assume, then a
// PUSH1 0x00 fallback for zero when push0 is disabled, else the
// minimal-width PUSHn of the word's meaningful content.
func appendConstantPush(buf []byte, p ir.Push, st settings.Settings) []byte {
	w := p.Constant
	if w.IsZero() && st.Push0 {
		return append(buf, opcode.PUSH0)
	}
	if p.Attrs != nil && p.Attrs.Optimization {
		if op, ok := p.Attrs.FindAssumedOp(w); ok {
			return append(buf, op)
		}
	}
	if w.IsZero() {
		return append(buf, opcode.PUSH0+1, 0x00)
	}
	var tail []byte
	if p.RightPad {
		tail = w.MinimalTail()
	} else {
		tail = w.MinimalHead()
	}
	buf = append(buf, opcode.PUSH0+byte(len(tail)))
	return append(buf, tail...)
}

// fillBlockEnd appends the trailing filler bytes block[blockStart:]
// needs so that no PUSH opcode near the boundary reaches past the end
// of its own data into the next block (spec §4.8 Pass 2, §9 "Filling
// the end of a block").
func fillBlockEnd(buf []byte, blockStart int, fp settings.FillingPattern, rng *rand.Rand) []byte {
	n := missingPushData(buf[blockStart:])
	for i := 0; i < n; i++ {
		buf = append(buf, fillByte(fp, i, rng, n-i))
	}
	return buf
}

// missingPushData walks blockBytes with the push-data-length
// automaton and returns how many more data bytes the last PUSH in the
// block is still owed, i.e. how many filler bytes must follow before
// the next block may safely begin.
func missingPushData(blockBytes []byte) int {
	i := 0
	for i < len(blockBytes) {
		n, ok := opcode.PushDataLength(blockBytes[i])
		if !ok {
			i++
			continue
		}
		end := i + 1 + n
		if end > len(blockBytes) {
			return end - len(blockBytes)
		}
		i = end
	}
	return 0
}

// fillByte picks the i-th filler byte. Repeat always returns the
// configured byte. Random draws from the package PRNG but refuses any
// byte that would itself begin a PUSH needing more data than remains
// in the filler window, which would smuggle non-filler meaning past
// the block boundary.
func fillByte(fp settings.FillingPattern, i int, rng *rand.Rand, remaining int) byte {
	if fp.Kind == settings.FillingRepeat {
		return fp.Repeat
	}
	for {
		b := byte(rng.Intn(256))
		if n, ok := opcode.PushDataLength(b); ok && n > remaining-1 {
			continue
		}
		return b
	}
}
