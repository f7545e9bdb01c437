// Package flow implements the per-block flow analyzer (C6): it walks
// one parsed block's items in order, resolving hex aliases, compile
// variables, block references and push/rpush/lpush calls into the
// flat ir.Item stream, and tracks the strong/weak dependency sets a
// block's references place on its contract's dependency graph.
//
// Grounded on original_source's pre_processing/block_flow.rs
// (analyze_block_flow, append_or_create_bytes, push_or_create_bytes).
package flow

import (
	"github.com/meplang/meplangc/internal/compiler/attribute"
	"github.com/meplang/meplangc/internal/compiler/ir"
	"github.com/meplang/meplangc/internal/compiler/oset"
	"github.com/meplang/meplangc/internal/compiler/opcode"
	"github.com/meplang/meplangc/internal/compiler/word"
	"github.com/meplang/meplangc/internal/syntax/ast"
	"github.com/meplang/meplangc/pkg/errors"
)

// BlockInfo is what a contract-wide name table records about one of
// its blocks, resolved ahead of time by the caller (C7) before any
// per-block analysis begins, so forward references always succeed.
type BlockInfo struct {
	ID       int
	Abstract bool
}

// Env is everything AnalyzeBlockFlow needs beyond the block itself:
// the current contract's resolved constant map, its block name table,
// the file-wide contract name table (for &name.code), and the
// compile-time variable overrides (spec §6 settings.variables).
type Env struct {
	Constants   map[string][]byte
	Blocks      map[string]BlockInfo
	Contracts   map[string]int
	CompileVars map[string][]byte
	// Initial seeds the block's attribute accumulator, carrying any
	// contract-level #[assume(...)]/#[clear_assume(...)] down into
	// every block (spec §4.4's contract-attribute inheritance). A nil
	// Initial starts from the all-defaults accumulator.
	Initial *attribute.Attributes
}

// AnalyzeBlockFlow analyzes one parsed block, returning its flattened
// flow. contractDeps accumulates contract ids referenced via
// &name.code, for the caller to fold into the file-wide contract
// dependency graph (C8).
func AnalyzeBlockFlow(block ast.Block, blockID int, env Env, contractDeps *oset.IndexSet) (ir.BlockFlow, error) {
	acc := attribute.New()
	if env.Initial != nil {
		acc = env.Initial.Clone()
	}
	for _, raw := range block.Attrs {
		attr, err := attribute.FromAST(raw, env.CompileVars)
		if err != nil {
			return ir.BlockFlow{}, err
		}
		acc.Apply(attr)
	}

	strongSeen := oset.NewIndexSet()
	weakSeen := oset.NewIndexSet()
	var items []ir.Item

	for _, item := range block.Items {
		for _, rawAttr := range item.ItemAttrs {
			attr, err := attribute.FromAST(rawAttr, env.CompileVars)
			if err != nil {
				return ir.BlockFlow{}, err
			}
			if !attr.IsBlockItemAttribute() {
				return ir.BlockFlow{}, errors.New(errors.InvalidAttributePlacement, rawAttr.Span,
					"only #[assume(...)] and #[clear_assume(...)] may be placed on a block item")
			}
			acc.Apply(attr)
		}

		switch item.Kind {
		case ast.BlockItemHexAlias:
			b, err := resolveHexAliasAsItemBody(*item.HexAlias, env)
			if err != nil {
				return ir.BlockFlow{}, err
			}
			if b != nil {
				items = ir.AppendBytes(items, b...)
				continue
			}
			// bare opcode mnemonic
			op, _ := opcode.MnemonicToOp(item.HexAlias.Variable)
			items = ir.AppendBytes(items, op)

		case ast.BlockItemBlockRef:
			ref := *item.BlockRef
			switch ref.Kind {
			case ast.BlockRefStar:
				info, ok := env.Blocks[ref.Name]
				if !ok {
					return ir.BlockFlow{}, errors.New(errors.UnknownName, ref.Span, "unknown block `%s`", ref.Name)
				}
				if info.Abstract {
					return ir.BlockFlow{}, errors.New(errors.StarOnAbstract, ref.Span,
						"`*%s` cannot splice abstract block `%s` - use `&%s`", ref.Name, ref.Name, ref.Name)
				}
				strongSeen.Add(info.ID)
				items = append(items, ir.Item{Kind: ir.ItemStarRef, RefBlockID: info.ID, Span: ref.Span})

			case ast.BlockRefEsp:
				info, ok := env.Blocks[ref.Name]
				if !ok {
					return ir.BlockFlow{}, errors.New(errors.UnknownName, ref.Span, "unknown block `%s`", ref.Name)
				}
				if !info.Abstract {
					return ir.BlockFlow{}, errors.New(errors.EspOnConcrete, ref.Span,
						"`&%s` cannot inline non-abstract block `%s` - use `*%s`", ref.Name, ref.Name, ref.Name)
				}
				strongSeen.Add(info.ID)
				items = append(items, ir.Item{Kind: ir.ItemEspRef, RefBlockID: info.ID, Span: ref.Span})

			case ast.BlockRefEspCode:
				cid, ok := env.Contracts[ref.Name]
				if !ok {
					return ir.BlockFlow{}, errors.New(errors.UnknownName, ref.Span, "unknown contract `%s`", ref.Name)
				}
				contractDeps.Add(cid)
				items = append(items, ir.Item{Kind: ir.ItemContractCode, ContractID: cid, Span: ref.Span})
			}

		case ast.BlockItemFuncCall:
			call := *item.FuncCall
			rightPad := call.Name != "lpush"
			push, err := resolveFuncCall(call, env, rightPad, acc.Clone(), weakSeen)
			if err != nil {
				return ir.BlockFlow{}, err
			}
			items = append(items, ir.Item{Kind: ir.ItemPush, Push: push, Span: item.Span})
		}
	}

	return ir.BlockFlow{
		BlockID:    blockID,
		Abstract:   block.Abstract,
		Items:      items,
		EndAttrs:   acc,
		StrongDeps: strongSeen.Values(),
		WeakDeps:   weakSeen.Values(),
	}, nil
}

// resolveHexAliasAsItemBody resolves a bare block-item hex alias. It
// returns (bytes, nil) when the alias resolved to literal/constant/
// compile-variable bytes, or (nil, nil) when it is a bare opcode
// mnemonic (the caller then emits the opcode byte directly).
func resolveHexAliasAsItemBody(h ast.HexAlias, env Env) ([]byte, error) {
	switch h.Kind {
	case ast.HexAliasLiteral:
		return h.HexLiteral, nil
	case ast.HexAliasCompileVar:
		v, ok := env.CompileVars[h.CompileVariable]
		if !ok {
			return nil, errors.New(errors.UnknownName, h.Span, "undefined compile-time variable `$%s$`", h.CompileVariable)
		}
		return v, nil
	case ast.HexAliasVariable:
		if v, ok := env.Constants[h.Variable]; ok {
			return v, nil
		}
		if _, ok := opcode.MnemonicToOp(h.Variable); ok {
			return nil, nil
		}
		return nil, errors.New(errors.UnknownName, h.Span, "unknown name `%s`", h.Variable)
	}
	return nil, errors.New(errors.UnknownName, h.Span, "unrecognized hex alias")
}

// resolveConstantBytes resolves a hex alias used as a push argument:
// only literal/constant/compile-variable forms are allowed (an opcode
// mnemonic has no constant value to push).
func resolveConstantBytes(h ast.HexAlias, env Env) ([]byte, error) {
	switch h.Kind {
	case ast.HexAliasLiteral:
		return h.HexLiteral, nil
	case ast.HexAliasCompileVar:
		v, ok := env.CompileVars[h.CompileVariable]
		if !ok {
			return nil, errors.New(errors.UnknownName, h.Span, "undefined compile-time variable `$%s$`", h.CompileVariable)
		}
		return v, nil
	case ast.HexAliasVariable:
		if v, ok := env.Constants[h.Variable]; ok {
			return v, nil
		}
		return nil, errors.New(errors.UnknownName, h.Span, "unknown constant `%s`", h.Variable)
	}
	return nil, errors.New(errors.UnknownName, h.Span, "unrecognized hex alias")
}

func resolveFuncCall(call ast.FuncCall, env Env, rightPad bool, attrs *attribute.Attributes, weakSeen *oset.IndexSet) (ir.Push, error) {
	switch call.Arg.Kind {
	case ast.FuncArgSimple:
		bytes, err := resolveConstantBytes(*call.Arg.Simple, env)
		if err != nil {
			return ir.Push{}, err
		}
		return constantPush(bytes, rightPad, attrs, call.Arg.Span)

	case ast.FuncArgConcat:
		if !rightPad {
			return ir.Push{}, errors.New(errors.InvalidAttributeArg, call.Arg.Span,
				"`%s` does not accept a concatenation - use `push` or `rpush`", call.Name)
		}
		var bytes []byte
		for _, h := range call.Arg.Concat {
			b, err := resolveConstantBytes(h, env)
			if err != nil {
				return ir.Push{}, err
			}
			bytes = append(bytes, b...)
		}
		return constantPush(bytes, rightPad, attrs, call.Arg.Span)

	case ast.FuncArgFieldAccess:
		if !rightPad {
			return ir.Push{}, errors.New(errors.InvalidAttributeArg, call.Arg.Span,
				"`%s` does not accept `.%s` - use `push` or `rpush`", call.Name, call.Arg.Field)
		}
		info, ok := env.Blocks[call.Arg.FieldName]
		if !ok {
			return ir.Push{}, errors.New(errors.UnknownName, call.Arg.Span, "unknown block `%s`", call.Arg.FieldName)
		}
		weakSeen.Add(info.ID)
		kind := ir.PushBlockPc
		if call.Arg.Field == "size" {
			kind = ir.PushBlockSize
		}
		return ir.Push{Kind: kind, BlockID: info.ID, RightPad: rightPad, Attrs: attrs}, nil
	}
	return ir.Push{}, errors.New(errors.InvalidAttributeArg, call.Arg.Span, "invalid push argument")
}

func constantPush(bytes []byte, rightPad bool, attrs *attribute.Attributes, span ast.Span) (ir.Push, error) {
	if len(bytes) > 32 {
		return ir.Push{}, errors.New(errors.ConstantTooLarge, span, "push argument exceeds 32 bytes")
	}
	w, ok := word.FromBytes(bytes, rightPad)
	if !ok {
		return ir.Push{}, errors.New(errors.ConstantTooLarge, span, "push argument exceeds 32 bytes")
	}
	return ir.Push{Kind: ir.PushConstant, Constant: w, RightPad: rightPad, Attrs: attrs}, nil
}
