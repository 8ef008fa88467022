// Command kbctl runs the scalp rule engine offline against an assessment file.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kbctl:", err)
		os.Exit(1)
	}
}
