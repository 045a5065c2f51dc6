// The main package for the newsimg executable.
package main

import (
	"github.com/openpress/newsimg/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
