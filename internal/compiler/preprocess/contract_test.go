package preprocess

import (
	"testing"

	"github.com/meplang/meplangc/internal/compiler/ir"
	"github.com/meplang/meplangc/internal/syntax/ast"
	"github.com/meplang/meplangc/internal/syntax/parser"
)

func parseContract(t *testing.T, src string) ast.Contract {
	t.Helper()
	f, err := parser.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return f.Contracts[0]
}

func TestContractSimpleMain(t *testing.T) {
	c := parseContract(t, `contract C {
		#[main]
		block main { stop }
	}`)
	res, err := Contract(c, 0, map[string]int{"C": 0}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.RootBlocks) != 1 || res.RootBlocks[0].Name != "main" {
		t.Fatalf("root blocks = %+v", res.RootBlocks)
	}
}

func TestContractMissingMainIsError(t *testing.T) {
	c := parseContract(t, `contract C { block main { stop } }`)
	if _, err := Contract(c, 0, map[string]int{"C": 0}, nil); err == nil {
		t.Fatal("expected MissingMain error")
	}
}

func TestContractDuplicateBlockNameIsError(t *testing.T) {
	c := parseContract(t, `contract C {
		#[main]
		block main { stop }
		block main { stop }
	}`)
	if _, err := Contract(c, 0, map[string]int{"C": 0}, nil); err == nil {
		t.Fatal("expected NameAlreadyUsed error")
	}
}

func TestContractMultipleMainIsError(t *testing.T) {
	c := parseContract(t, `contract C {
		#[main]
		block a { stop }
		#[main]
		block b { stop }
	}`)
	if _, err := Contract(c, 0, map[string]int{"C": 0}, nil); err == nil {
		t.Fatal("expected MultiplePins error")
	}
}

func TestContractStarInliningAndPositions(t *testing.T) {
	c := parseContract(t, `contract C {
		#[main]
		block main { *A *B }
		block A { push(0x01) }
		block B { push(0x02) }
	}`)
	res, err := Contract(c, 0, map[string]int{"C": 0}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A and B are spliced into main and should no longer have their own
	// standalone root region.
	if len(res.RootBlocks) != 1 {
		t.Fatalf("expected exactly one root block (main), got %d: %+v", len(res.RootBlocks), res.RootBlocks)
	}
	main := res.RootBlocks[0]
	if len(main.Items) != 2 {
		t.Fatalf("expected 2 spliced push items in main, got %d", len(main.Items))
	}
	aID, bID := 1, 2
	if pos, ok := res.Positions[aID]; !ok || pos.Start != 0 || pos.End != 1 {
		t.Errorf("A position = %+v", pos)
	}
	if pos, ok := res.Positions[bID]; !ok || pos.Start != 1 || pos.End != 2 {
		t.Errorf("B position = %+v", pos)
	}
}

func TestContractAbstractDoubleInlining(t *testing.T) {
	c := parseContract(t, `contract C {
		abstract block X { add }
		#[main]
		block main { *A *B }
		block A { push(0x01) &X }
		block B { push(0x02) &X }
	}`)
	res, err := Contract(c, 0, map[string]int{"C": 0}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	main := res.RootBlocks[0]
	// A -> [push(0x01), add]; B -> [push(0x02), add]: 4 items total.
	if len(main.Items) != 4 {
		t.Fatalf("expected 4 items (A's push+add, B's push+add), got %d: %+v", len(main.Items), main.Items)
	}
	if main.Items[1].Kind != ir.ItemBytes || main.Items[3].Kind != ir.ItemBytes {
		t.Fatalf("expected X's `add` to appear inlined twice, got %+v", main.Items)
	}
}

func TestContractStarTwiceIsError(t *testing.T) {
	c := parseContract(t, `contract C {
		#[main]
		block main { *A *A }
		block A { stop }
	}`)
	if _, err := Contract(c, 0, map[string]int{"C": 0}, nil); err == nil {
		t.Fatal("expected StarTwice error")
	}
}

func TestContractStarOnAbstractIsError(t *testing.T) {
	c := parseContract(t, `contract C {
		abstract block X { add }
		#[main]
		block main { *X }
	}`)
	if _, err := Contract(c, 0, map[string]int{"C": 0}, nil); err == nil {
		t.Fatal("expected StarOnAbstract error")
	}
}

func TestContractRecursiveBlocksIsError(t *testing.T) {
	c := parseContract(t, `contract C {
		#[main]
		block main { *A }
		block A { *B }
		block B { *A }
	}`)
	if _, err := Contract(c, 0, map[string]int{"C": 0}, nil); err == nil {
		t.Fatal("expected RecursiveBlocks error")
	}
}

func TestContractKeepBlockIsAlwaysRoot(t *testing.T) {
	c := parseContract(t, `contract C {
		#[main]
		block main { stop }
		#[keep]
		block unused { add }
	}`)
	res, err := Contract(c, 0, map[string]int{"C": 0}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.RootBlocks) != 2 {
		t.Fatalf("expected main + kept block as roots, got %+v", res.RootBlocks)
	}
}

func TestContractUnreferencedBlockIsDropped(t *testing.T) {
	c := parseContract(t, `contract C {
		#[main]
		block main { stop }
		block dead { add }
	}`)
	res, err := Contract(c, 0, map[string]int{"C": 0}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.RootBlocks) != 1 {
		t.Fatalf("expected only main, got %+v", res.RootBlocks)
	}
}

func TestContractWeakDepBecomesOwnRoot(t *testing.T) {
	c := parseContract(t, `contract C {
		#[main]
		block main { push(tail.pc) stop }
		block tail { add }
	}`)
	res, err := Contract(c, 0, map[string]int{"C": 0}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.RootBlocks) != 2 {
		t.Fatalf("expected main and tail as separate roots, got %+v", res.RootBlocks)
	}
	tailID := 1
	if _, ok := res.Positions[tailID]; !ok {
		t.Error("tail should have a recorded position")
	}
}
