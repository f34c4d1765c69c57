// Command callgraph scans an HTTP access log, infers its schema, groups
// requests into sessions, and renders the resulting weighted call graph.
package main

import "os"

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}
