// Command budgetctl parses statements and manages categorization rules from
// the command line.
package main

import (
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
