package emit

import (
	"os"
	"testing"

	"github.com/meplang/meplangc/internal/compiler/artifacts"
	"github.com/meplang/meplangc/internal/compiler/opcode"
	"github.com/meplang/meplangc/internal/compiler/preprocess"
	"github.com/meplang/meplangc/internal/compiler/settings"
	"github.com/meplang/meplangc/internal/syntax/parser"
	"github.com/meplang/meplangc/pkg/errors"
)

func compileFixture(t *testing.T, path string, st settings.Settings) *artifacts.ContractArtifacts {
	t.Helper()
	src, err := os.ReadFile("../../../testdata/" + path)
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	file, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	fr, err := preprocess.File(file, "C", st.Variables)
	if err != nil {
		t.Fatalf("pre-process failed: %v", err)
	}
	res, err := Emit(fr, st)
	if err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	return res.Artifacts.Contracts["C"]
}

func TestHelloOpcodes(t *testing.T) {
	c := compileFixture(t, "hello_opcodes.mep", settings.Default())
	want := []byte{0x60, 0x01, 0x60, 0x02, 0x01, 0x00}
	if string(c.Bytecode) != string(want) {
		t.Fatalf("bytecode = % x, want % x", c.Bytecode, want)
	}
	b := c.Blocks["main"]
	if b.PC != 0 || b.Size != 6 {
		t.Fatalf("main = %+v, want {pc:0 size:6}", b)
	}
}

func TestPushWidthPush0Enabled(t *testing.T) {
	st := settings.Default()
	c := compileFixture(t, "push_width.mep", st)
	want := []byte{0x60, 0x01, 0x61, 0x01, 0x02, 0x5f}
	if string(c.Bytecode) != string(want) {
		t.Fatalf("bytecode = % x, want % x", c.Bytecode, want)
	}
}

func TestPushWidthPush0Disabled(t *testing.T) {
	st := settings.Default()
	st.Push0 = false
	c := compileFixture(t, "push_width.mep", st)
	want := []byte{0x60, 0x01, 0x61, 0x01, 0x02, 0x60, 0x00}
	if string(c.Bytecode) != string(want) {
		t.Fatalf("bytecode = % x, want % x", c.Bytecode, want)
	}
}

func TestForwardLabel(t *testing.T) {
	c := compileFixture(t, "forward_label.mep", settings.Default())
	// main: PUSH2 <target.pc hi lo> JUMP (0x56); target: JUMPDEST STOP
	if len(c.Bytecode) < 4 || c.Bytecode[0] != 0x61 {
		t.Fatalf("expected main to start with a PUSH2 hole, got % x", c.Bytecode)
	}
	targetPC := int(c.Bytecode[1])<<8 | int(c.Bytecode[2])
	want := c.Blocks["target"]
	if uint64(targetPC) != want.PC {
		t.Fatalf("encoded target address %d != recorded pc %d", targetPC, want.PC)
	}
	if c.Bytecode[3] != 0x56 {
		t.Fatalf("expected JUMP (0x56) after the hole, got 0x%02x", c.Bytecode[3])
	}
	if c.Bytecode[int(want.PC)] != 0x5b || c.Bytecode[int(want.PC)+1] != 0x00 {
		t.Fatalf("target block does not start with JUMPDEST STOP: % x", c.Bytecode[want.PC:])
	}
}

func TestOpcodeSubstitution(t *testing.T) {
	c := compileFixture(t, "opcode_substitution.mep", settings.Default())
	want := []byte{0x59, 0x50} // MSIZE, POP
	if string(c.Bytecode) != string(want) {
		t.Fatalf("bytecode = % x, want % x (single-byte substitution for the push)", c.Bytecode, want)
	}
}

func TestAbstractInlineTwice(t *testing.T) {
	c := compileFixture(t, "abstract_inline_twice.mep", settings.Default())
	// A: PUSH1 0x01 ADD; B: PUSH1 0x02 ADD -- X's `add` body appears twice.
	want := []byte{0x60, 0x01, 0x01, 0x60, 0x02, 0x01}
	if string(c.Bytecode) != string(want) {
		t.Fatalf("bytecode = % x, want % x", c.Bytecode, want)
	}
}

func TestHoleOverflow(t *testing.T) {
	src, err := os.ReadFile("../../../testdata/hole_overflow.mep")
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	file, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	fr, err := preprocess.File(file, "C", nil)
	if err != nil {
		t.Fatalf("pre-process failed: %v", err)
	}
	_, err = Emit(fr, settings.Default())
	if err == nil {
		t.Fatal("expected HoleOverflow, got nil error")
	}
	var ce *errors.CompileError
	if !errors.As(err, &ce) || ce.Kind != errors.HoleOverflow {
		t.Fatalf("expected HoleOverflow, got %v", err)
	}
}

func TestPushIntegrityAcrossBlockBoundaries(t *testing.T) {
	c := compileFixture(t, "forward_label.mep", settings.Default())
	// Walking bc with the push-length automaton must land exactly on
	// every recorded block pc: no PUSH data may swallow a boundary.
	pcs := make(map[int]bool, len(c.Blocks))
	for _, b := range c.Blocks {
		pcs[int(b.PC)] = true
	}
	i := 0
	for i < len(c.Bytecode) {
		delete(pcs, i)
		if n, ok := opcode.PushDataLength(c.Bytecode[i]); ok {
			i += 1 + n
		} else {
			i++
		}
	}
	if i != len(c.Bytecode) {
		t.Fatalf("push-length walk overran the buffer: ended at %d, len %d", i, len(c.Bytecode))
	}
	if len(pcs) != 0 {
		t.Fatalf("block pcs never landed on by the walk: %v", pcs)
	}
}

func TestDeterministicAcrossRuns(t *testing.T) {
	c1 := compileFixture(t, "abstract_inline_twice.mep", settings.Default())
	c2 := compileFixture(t, "abstract_inline_twice.mep", settings.Default())
	if string(c1.Bytecode) != string(c2.Bytecode) {
		t.Fatalf("two compiles of the same source diverged: % x vs % x", c1.Bytecode, c2.Bytecode)
	}
}
