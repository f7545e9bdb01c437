package preprocess

import (
	"github.com/meplang/meplangc/internal/compiler/depgraph"
	"github.com/meplang/meplangc/internal/compiler/oset"
	"github.com/meplang/meplangc/internal/syntax/ast"
	"github.com/meplang/meplangc/log"
	"github.com/meplang/meplangc/pkg/errors"
)

// FileResult is the file pre-processor's (C8) output: every reachable
// contract, fully pre-processed, in dependency-first compile order so
// the emitter can embed an already-compiled contract's bytecode
// whenever it encounters a &name.code reference.
type FileResult struct {
	EntryContractID int
	ByID            map[int]*ContractResult
	CompileOrder    []int // contract ids, dependency-first
}

// File runs C8 over a whole parsed file: assigns contract ids,
// pre-processes every contract (C7), seeds reachability from the
// named entry contract, and topologically orders the reachable set so
// every &name.code dependency is compiled before its referrer.
func File(f *ast.File, entryContract string, compileVars map[string][]byte) (*FileResult, error) {
	contractIDs := make(map[string]int, len(f.Contracts))
	for i, c := range f.Contracts {
		if _, exists := contractIDs[c.Name]; exists {
			return nil, errors.New(errors.NameAlreadyUsed, c.NameSpan, "contract `%s` already defined", c.Name)
		}
		contractIDs[c.Name] = i
	}

	entryID, ok := contractIDs[entryContract]
	if !ok {
		return nil, errors.New(errors.UnknownName, errors.Span{}, "unknown entry contract `%s`", entryContract)
	}

	results := make(map[int]*ContractResult, len(f.Contracts))
	for i, c := range f.Contracts {
		res, err := Contract(c, i, contractIDs, compileVars)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}

	reachable := reachableContracts(entryID, results)
	for i, c := range f.Contracts {
		if !reachable.Contains(i) {
			log.Warnf("contract `%s` is never referenced from `%s` and was dropped", c.Name, entryContract)
		}
	}

	g := depgraph.New()
	for _, id := range reachable.Values() {
		g.AddNode(id)
	}
	for _, id := range reachable.Values() {
		for _, dep := range results[id].ContractDeps {
			if reachable.Contains(dep) {
				g.AddEdge(id, dep)
			}
		}
	}
	order := g.DrainLeaves()
	if !g.IsEmpty() {
		return nil, errors.New(errors.RecursiveContracts, errors.Span{},
			"cyclic &name.code references reachable from contract `%s`", entryContract)
	}

	byID := make(map[int]*ContractResult, len(order))
	for _, id := range order {
		byID[id] = results[id]
	}

	return &FileResult{EntryContractID: entryID, ByID: byID, CompileOrder: order}, nil
}

func reachableContracts(entryID int, results map[int]*ContractResult) *oset.IndexSet {
	seen := oset.NewIndexSet()
	queue := oset.NewDedupQueue()
	queue.InsertIfNeeded(entryID)
	for {
		id, ok := queue.Pop()
		if !ok {
			break
		}
		seen.Add(id)
		for _, dep := range results[id].ContractDeps {
			queue.InsertIfNeeded(dep)
		}
	}
	return seen
}
