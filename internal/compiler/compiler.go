// Package compiler wires the pipeline's stages together: parse,
// pre-process, emit. It is the entry point cmd/meplangc and the
// end-to-end tests call instead of driving each stage by hand.
package compiler

import (
	"os"
	"time"

	"github.com/meplang/meplangc/internal/compiler/artifacts"
	"github.com/meplang/meplangc/internal/compiler/emit"
	"github.com/meplang/meplangc/internal/compiler/metrics"
	"github.com/meplang/meplangc/internal/compiler/preprocess"
	"github.com/meplang/meplangc/internal/compiler/settings"
	"github.com/meplang/meplangc/internal/syntax/parser"
	"github.com/meplang/meplangc/log"
	"github.com/meplang/meplangc/pkg/errors"
)

// CompileSource runs the full pipeline over already-read source text
// for the named entry contract.
func CompileSource(src []byte, entryContract string, st settings.Settings) (*artifacts.Artifacts, error) {
	start := time.Now()

	file, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	log.Debugf("parsed file: %d contract(s)", len(file.Contracts))

	fr, err := preprocess.File(file, entryContract, st.Variables)
	if err != nil {
		return nil, err
	}
	log.Debugf("pre-processed file: %d reachable contract(s)", len(fr.CompileOrder))

	res, err := emit.Emit(fr, st)
	if err != nil {
		return nil, err
	}

	metrics.ContractsCompiled.Add(float64(len(fr.CompileOrder)))
	metrics.BlocksEmitted.Add(float64(res.BlocksEmitted))
	metrics.BytesEmitted.Add(float64(res.BytesEmitted))
	metrics.HolesBackpatched.Add(float64(res.HolesBackpatched))
	metrics.CompileDuration.Observe(time.Since(start).Seconds())

	return res.Artifacts, nil
}

// CompileFile reads path and runs CompileSource against its contents.
func CompileFile(path string, entryContract string, st settings.Settings) (*artifacts.Artifacts, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return CompileSource(src, entryContract, st)
}
