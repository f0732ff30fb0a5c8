// Command cashflow projects retirement cash flows and compares Roth
// conversion schedules.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
