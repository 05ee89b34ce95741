// Command filehorizon runs the FileHorizon file-movement pipeline:
// pollers that discover files and workers that validate, route, and
// fan them out to configured destinations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
