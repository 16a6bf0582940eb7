// Command qabench benchmarks and evaluates extractive question answering
// over ONNX models: export and optimization tooling, latency benchmarks,
// SQuAD accuracy evaluation, and graph-level comparison of model variants.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
