// Package artifacts implements the artifact recorder (C10): a thin
// accumulator of each contract's final bytecode and its named blocks'
// {pc,size}, serializable to the camelCase JSON schema of spec §6.
// Grounded on original_source's compile/artifacts.rs
// (ContractArtifacts::set_pc/set_size, Artifacts::main_bytecode).
package artifacts

import (
	"encoding/hex"
	"encoding/json"

	"github.com/meplang/meplangc/pkg/errors"
)

// BlockArtifact is the recorded program-counter and byte length of one
// named block within a compiled contract's bytecode.
type BlockArtifact struct {
	PC   uint64
	Size uint64
}

// ContractArtifacts accumulates one contract's emitted bytecode and
// the pc/size of every named block reached during emission (spec §4.9).
type ContractArtifacts struct {
	Bytecode []byte
	Blocks   map[string]BlockArtifact
}

// NewContractArtifacts returns an empty recorder.
func NewContractArtifacts() *ContractArtifacts {
	return &ContractArtifacts{Blocks: make(map[string]BlockArtifact)}
}

// SetPC records the program counter at which name's content begins.
func (c *ContractArtifacts) SetPC(name string, pc int) {
	b := c.Blocks[name]
	b.PC = uint64(pc)
	c.Blocks[name] = b
}

// SetSize records name's byte length. The emitter calls this after
// any inter-block filler has been appended, so a root block's
// recorded size includes its trailing padding (spec §9, "Filling the
// end of a block").
func (c *ContractArtifacts) SetSize(name string, size int) {
	b := c.Blocks[name]
	b.Size = uint64(size)
	c.Blocks[name] = b
}

// Artifacts is the top-level compile result: every reachable
// contract's artifacts, plus the name of the entry contract whose
// bytecode is the program's main output.
type Artifacts struct {
	Main      string
	Contracts map[string]*ContractArtifacts
}

// New returns an empty Artifacts for the given entry contract name.
func New(main string) *Artifacts {
	return &Artifacts{Main: main, Contracts: make(map[string]*ContractArtifacts)}
}

// MainBytecode returns the entry contract's bytecode, or nil if it
// was never recorded.
func (a *Artifacts) MainBytecode() []byte {
	c, ok := a.Contracts[a.Main]
	if !ok {
		return nil
	}
	return c.Bytecode
}

type jsonBlock struct {
	PC   uint64 `json:"pc"`
	Size uint64 `json:"size"`
}

type jsonContract struct {
	Bytecode string               `json:"bytecode"`
	Blocks   map[string]jsonBlock `json:"blocks"`
}

type jsonArtifacts struct {
	Main      string                  `json:"main"`
	Contracts map[string]jsonContract `json:"contracts"`
}

// MarshalJSON encodes the artifacts per spec §6: bytecode as a
// "0x"-prefixed hex string, blocks as {pc,size} objects.
func (a *Artifacts) MarshalJSON() ([]byte, error) {
	out := jsonArtifacts{Main: a.Main, Contracts: make(map[string]jsonContract, len(a.Contracts))}
	for name, c := range a.Contracts {
		blocks := make(map[string]jsonBlock, len(c.Blocks))
		for blockName, b := range c.Blocks {
			blocks[blockName] = jsonBlock{PC: b.PC, Size: b.Size}
		}
		out.Contracts[name] = jsonContract{
			Bytecode: "0x" + hex.EncodeToString(c.Bytecode),
			Blocks:   blocks,
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the spec §6 JSON shape, for the disasm
// command's read-only use of a previously written artifacts file.
func (a *Artifacts) UnmarshalJSON(data []byte) error {
	var raw jsonArtifacts
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "invalid artifacts JSON")
	}
	a.Main = raw.Main
	a.Contracts = make(map[string]*ContractArtifacts, len(raw.Contracts))
	for name, rc := range raw.Contracts {
		if len(rc.Bytecode) < 2 || rc.Bytecode[:2] != "0x" {
			return errors.Errorf("contract %q: bytecode must be 0x-prefixed", name)
		}
		bytecode, err := hex.DecodeString(rc.Bytecode[2:])
		if err != nil {
			return errors.Wrapf(err, "contract %q: invalid bytecode hex", name)
		}
		ca := NewContractArtifacts()
		ca.Bytecode = bytecode
		for blockName, b := range rc.Blocks {
			ca.Blocks[blockName] = BlockArtifact{PC: b.PC, Size: b.Size}
		}
		a.Contracts[name] = ca
	}
	return nil
}
