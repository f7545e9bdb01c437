// Package ast defines the positioned parse tree that is the core
// compiler's only input (spec §3). Every node carries a Span so
// diagnostics can always point back into the source text.
package ast

import "github.com/meplang/meplangc/pkg/errors"

// Span locates a node in the source text.
type Span = errors.Span

// File is the root node: an ordered sequence of contracts.
type File struct {
	Contracts []Contract
}

// Contract is `contract Name { consts...; blocks... }`.
type Contract struct {
	Name     string
	NameSpan Span
	Attrs    []Attribute
	Consts   []Const
	Blocks   []Block
	Span     Span
}

// Const is `const name = HEX|$VAR$;`.
type Const struct {
	Name     string
	NameSpan Span
	Value    ConstValue
	Span     Span
}

type ConstValueKind int

const (
	ConstValueHex ConstValueKind = iota
	ConstValueCompileVar
)

type ConstValue struct {
	Kind            ConstValueKind
	HexLiteral      []byte
	CompileVariable string
	Span            Span
}

// Block is `[abstract] block Name { items... }`.
type Block struct {
	Name     string
	NameSpan Span
	Abstract bool
	Attrs    []Attribute
	Items    []BlockItem
	Span     Span
}

type BlockItemKind int

const (
	BlockItemHexAlias BlockItemKind = iota
	BlockItemFuncCall
	BlockItemBlockRef
)

// BlockItem is one item inside a block body, optionally preceded by
// item-level attributes (only Assume/ClearAssume are legal there).
type BlockItem struct {
	Kind      BlockItemKind
	HexAlias  *HexAlias
	FuncCall  *FuncCall
	BlockRef  *BlockRef
	ItemAttrs []Attribute
	Span      Span
}

type HexAliasKind int

const (
	HexAliasLiteral HexAliasKind = iota
	HexAliasVariable
	HexAliasCompileVar
)

// HexAlias is a hex literal, a bare variable (opcode mnemonic or
// constant name), or a `$NAME$` compile-time variable.
type HexAlias struct {
	Kind            HexAliasKind
	HexLiteral      []byte
	Variable        string
	CompileVariable string
	Span            Span
}

type FuncArgKind int

const (
	// FuncArgSimple covers a single hex literal / bare variable /
	// compile variable argument, e.g. push(0x01), push(MY_CONST).
	FuncArgSimple FuncArgKind = iota
	// FuncArgConcat is a@b@c, only legal for right-padded push forms.
	FuncArgConcat
	// FuncArgFieldAccess is name.pc or name.size.
	FuncArgFieldAccess
)

type FuncArg struct {
	Kind      FuncArgKind
	Simple    *HexAlias
	Concat    []HexAlias
	FieldName string // block name, for FuncArgFieldAccess
	Field     string // "pc" or "size"
	Span      Span
}

// FuncCall is push(arg) / rpush(arg) / lpush(arg).
type FuncCall struct {
	Name string
	Arg  FuncArg
	Span Span
}

type BlockRefKind int

const (
	BlockRefStar     BlockRefKind = iota // *name
	BlockRefEsp                         // &name
	BlockRefEspCode                     // &name.code
)

type BlockRef struct {
	Kind BlockRefKind
	Name string
	Span Span
}

type AttributeArgKind int

const (
	AttributeArgVariable AttributeArgKind = iota
	AttributeArgString
	AttributeArgEquality
)

// Attribute is `#[name]` or `#[name(arg)]`.
type Attribute struct {
	Name string
	Arg  *AttributeArg
	Span Span
}

type AttributeArg struct {
	Kind     AttributeArgKind
	Variable string
	String   string
	Equality *AttributeEquality
	Span     Span
}

// AttributeEquality is `name = HEX | $VAR$ | "string"`.
type AttributeEquality struct {
	Name     string
	NameSpan Span
	Value    AttributeEqualityRight
}

type AttributeEqualityRightKind int

const (
	AttributeEqualityHex AttributeEqualityRightKind = iota
	AttributeEqualityCompileVar
	AttributeEqualityString
)

type AttributeEqualityRight struct {
	Kind            AttributeEqualityRightKind
	HexLiteral      []byte
	CompileVariable string
	String          string
	Span            Span
}
