// Package attribute implements the attribute model (C5): the
// Attribute variant, the Attributes accumulator, placement-rule
// classifiers, and parsing of a raw ast.Attribute into a resolved
// Attribute. Grounded on original_source's
// pre_processing/attribute.rs.
package attribute

import (
	"github.com/meplang/meplangc/internal/compiler/opcode"
	"github.com/meplang/meplangc/internal/compiler/word"
	"github.com/meplang/meplangc/internal/syntax/ast"
	"github.com/meplang/meplangc/pkg/errors"
)

type Kind int

const (
	Assume Kind = iota
	ClearAssume
	Keep
	Main
	Last
	Optimization
)

// Attribute is one parsed #[...] attribute, fully resolved against the
// opcode table and the compile-time variable map.
type Attribute struct {
	Kind                Kind
	Op                  opcode.Op  // Assume, ClearAssume
	Value               word.Word  // Assume
	OptimizationEnabled bool       // Optimization
	Span                ast.Span
}

func (a Attribute) IsMain() bool { return a.Kind == Main }
func (a Attribute) IsLast() bool { return a.Kind == Last }
func (a Attribute) IsKeep() bool { return a.Kind == Keep }

// IsContractAttribute reports whether a may appear on a contract:
// any attribute except Main/Last/Keep (spec §4.4).
func (a Attribute) IsContractAttribute() bool {
	return !a.IsMain() && !a.IsLast() && !a.IsKeep()
}

// IsBlockAttribute reports whether a may appear on a concrete block:
// every attribute is legal there; Main/Last/Keep are consumed by the
// layout decision instead of accumulating.
func (a Attribute) IsBlockAttribute() bool { return true }

// IsAbstractBlockAttribute reports whether a may appear on an abstract
// block: same as a concrete block minus Main/Last/Keep.
func (a Attribute) IsAbstractBlockAttribute() bool {
	return !a.IsMain() && !a.IsLast() && !a.IsKeep()
}

// IsBlockItemAttribute reports whether a may appear on a block item:
// only Assume/ClearAssume.
func (a Attribute) IsBlockItemAttribute() bool {
	return a.Kind == Assume || a.Kind == ClearAssume
}

// FromAST resolves a parsed ast.Attribute into an Attribute, looking
// up opcode mnemonics and compile-time variables.
func FromAST(raw ast.Attribute, compileVars map[string][]byte) (Attribute, error) {
	switch raw.Name {
	case "assume":
		return parseAssume(raw, compileVars)
	case "clear_assume":
		return parseClearAssume(raw)
	case "enable_optimization":
		return Attribute{Kind: Optimization, OptimizationEnabled: true, Span: raw.Span}, nil
	case "disable_optimization":
		return Attribute{Kind: Optimization, OptimizationEnabled: false, Span: raw.Span}, nil
	case "keep":
		return Attribute{Kind: Keep, Span: raw.Span}, nil
	case "main":
		return Attribute{Kind: Main, Span: raw.Span}, nil
	case "last":
		return Attribute{Kind: Last, Span: raw.Span}, nil
	default:
		return Attribute{}, errors.New(errors.UnknownAttribute, raw.Span, "unknown attribute `%s`", raw.Name)
	}
}

func parseAssume(raw ast.Attribute, compileVars map[string][]byte) (Attribute, error) {
	if raw.Arg == nil {
		return Attribute{}, errors.New(errors.InvalidAttributePlacement, raw.Span,
			"argument required after `assume` attribute - ex: #[assume(msize = 0x20)]")
	}
	if raw.Arg.Kind != ast.AttributeArgEquality {
		return Attribute{}, errors.New(errors.InvalidAttributeArg, raw.Arg.Span,
			"expected equality - ex: #[assume(msize = 0x20)]")
	}
	eq := raw.Arg.Equality

	var bytes []byte
	switch eq.Value.Kind {
	case ast.AttributeEqualityHex:
		bytes = eq.Value.HexLiteral
	case ast.AttributeEqualityCompileVar:
		v, ok := compileVars[eq.Value.CompileVariable]
		if !ok {
			return Attribute{}, errors.New(errors.UnknownName, eq.Value.Span,
				"undefined compile-time variable `$%s$`", eq.Value.CompileVariable)
		}
		bytes = v
	default:
		return Attribute{}, errors.New(errors.InvalidAttributeArg, eq.Value.Span,
			"expected: hex literal - ex: #[assume(msize = 0x20)], or compile variable - ex: #[assume(chainid = $CHAINID$)]")
	}

	if len(bytes) > 32 {
		return Attribute{}, errors.New(errors.ConstantTooLarge, eq.Value.Span, "hexadecimal literal must be at most 32 bytes")
	}

	op, ok := opcode.MnemonicToOp(eq.Name)
	if !ok {
		return Attribute{}, errors.New(errors.UnknownName, eq.NameSpan, "unknown opcode `%s`", eq.Name)
	}
	if !opcode.IsAssumable(op) {
		return Attribute{}, errors.New(errors.AssumableOpcodeRequired, eq.NameSpan, "cannot assume opcode `%s`", eq.Name)
	}

	v, ok := word.FromBytes(bytes, true)
	if !ok {
		return Attribute{}, errors.New(errors.ConstantTooLarge, eq.Value.Span, "literal exceeds 32 bytes")
	}
	return Attribute{Kind: Assume, Op: op, Value: v, Span: raw.Span}, nil
}

func parseClearAssume(raw ast.Attribute) (Attribute, error) {
	if raw.Arg == nil {
		return Attribute{}, errors.New(errors.InvalidAttributePlacement, raw.Span,
			"argument required after `clear_assume` attribute - ex: #[clear_assume(returndatasize)]")
	}
	if raw.Arg.Kind != ast.AttributeArgVariable {
		return Attribute{}, errors.New(errors.InvalidAttributeArg, raw.Arg.Span,
			"opcode name required after `clear_assume` attribute - ex: #[clear_assume(returndatasize)]")
	}
	op, ok := opcode.MnemonicToOp(raw.Arg.Variable)
	if !ok {
		return Attribute{}, errors.New(errors.UnknownName, raw.Arg.Span, "unknown opcode `%s`", raw.Arg.Variable)
	}
	if !opcode.IsAssumable(op) {
		return Attribute{}, errors.New(errors.AssumableOpcodeRequired, raw.Arg.Span, "cannot assume opcode `%s`", raw.Arg.Variable)
	}
	return Attribute{Kind: ClearAssume, Op: op, Span: raw.Span}, nil
}

// Attributes is the ordered accumulator of active assumes plus the
// optimization flag, snapshotted into every Push IR item at the point
// it is analyzed (spec §9, "attribute inheritance during inlining").
type Attributes struct {
	Assumes      map[opcode.Op]word.Word
	Optimization bool
}

// New returns the default Attributes: no active assumes, optimization on.
func New() *Attributes {
	return &Attributes{Assumes: make(map[opcode.Op]word.Word), Optimization: true}
}

// Clone makes an independent copy, so that a later ClearAssume cannot
// retroactively change a Push already snapshotted at analysis time.
func (a *Attributes) Clone() *Attributes {
	cp := &Attributes{Assumes: make(map[opcode.Op]word.Word, len(a.Assumes)), Optimization: a.Optimization}
	for k, v := range a.Assumes {
		cp.Assumes[k] = v
	}
	return cp
}

// Apply folds one attribute into the accumulator. Kind values other
// than Assume/ClearAssume/Optimization (Keep/Main/Last) are consumed
// by the layout decision elsewhere and are no-ops here.
func (a *Attributes) Apply(attr Attribute) {
	switch attr.Kind {
	case Assume:
		a.Assumes[attr.Op] = attr.Value
	case ClearAssume:
		delete(a.Assumes, attr.Op)
	case Optimization:
		a.Optimization = attr.OptimizationEnabled
	}
}

// ApplyMany applies each attribute in order of appearance.
func (a *Attributes) ApplyMany(attrs []Attribute) {
	for _, attr := range attrs {
		a.Apply(attr)
	}
}

// FindAssumedOp returns the lowest-numbered opcode assumed to equal
// value, if any. Pinning to the lowest opcode byte keeps substitution
// deterministic even if two assumable opcodes are assumed equal to
// the same value at once, which spec §4.8 leaves as "some opcode".
func (a *Attributes) FindAssumedOp(value word.Word) (opcode.Op, bool) {
	found := false
	var best opcode.Op
	for op, v := range a.Assumes {
		if v == value && (!found || op < best) {
			best = op
			found = true
		}
	}
	return best, found
}
