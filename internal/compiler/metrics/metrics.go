// Package metrics instruments the compiler pipeline with Prometheus
// collectors, in the exposition style of the N42 node's own
// internal/blockchain.go counters/histograms (there backed by
// VictoriaMetrics' GetOrCreateCounter/GetOrCreateHistogram; here the
// module's chosen client is github.com/prometheus/client_golang,
// registered once against a package-local registry rather than the
// global DefaultRegisterer so repeated test runs never panic on
// duplicate registration).
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var (
	registry = prometheus.NewRegistry()

	ContractsCompiled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meplangc_contracts_compiled_total",
		Help: "Number of contracts successfully emitted.",
	})
	BlocksEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meplangc_blocks_emitted_total",
		Help: "Number of named blocks recorded in compile artifacts.",
	})
	BytesEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meplangc_bytes_emitted_total",
		Help: "Total bytecode bytes written across all compiled contracts.",
	})
	HolesBackpatched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meplangc_holes_backpatched_total",
		Help: "Number of BlockPc/BlockSize holes resolved by the backpatch pass.",
	})
	CompileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "meplangc_compile_duration_seconds",
		Help:    "Wall-clock time spent compiling one file.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	registry.MustRegister(ContractsCompiled, BlocksEmitted, BytesEmitted, HolesBackpatched, CompileDuration)
}

// Dump writes every registered metric in Prometheus text exposition
// format to w, for the `compile --stats` CLI flag.
func Dump(w io.Writer) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
