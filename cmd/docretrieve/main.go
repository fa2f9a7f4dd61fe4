// Command docretrieve is the CLI entrypoint for the hybrid document
// retrieval service: it ingests configured roots into the vector/lexical/
// metadata backends and serves the /retrieve, /neighbors, and /by_ids HTTP
// endpoints described in spec §6.
package main

import (
	"fmt"
	"os"

	"github.com/aman-cerp/docretrieve/cmd/docretrieve/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
