// Command bandpart extracts the vocal and keyboard parts of band scores
// into compact PDFs, and serves the same over HTTP.
package main

import (
	"fmt"
	"os"
)

var version = "0.3.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
