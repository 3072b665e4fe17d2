// ./main.go
package main

import (
	"github.com/xkilldash9x/domlens/cmd"
)

// main is the entry point for the domlens CLI.
func main() {
	// All command-line parsing, configuration and execution lives in cmd.
	cmd.Execute()
}
