// ./main.go
package main

import (
	"github.com/xkilldash9x/armtrace/cmd"
)

// main is the entry point for the armtrace CLI.
func main() {
	cmd.Execute()
}
