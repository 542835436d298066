// Command validate checks Spanish and EU tax identification numbers.
// Usage: go run ./cmd/validate 12345678Z A58818501 ESA58818501 ...
package main

import (
	"fmt"
	"os"

	"macrofact/internal/docid"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: validate <document> [<document> ...]")
		os.Exit(1)
	}

	failed := false
	for _, arg := range os.Args[1:] {
		res := docid.Validate(arg)
		if res.Valid {
			fmt.Printf("%s: valid %s\n", arg, res.Type)
		} else {
			failed = true
			fmt.Printf("%s: invalid (%s)\n", arg, res.Reason)
		}
	}
	if failed {
		os.Exit(1)
	}
}
