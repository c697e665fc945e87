// The main package for the uol-harvest executable.
package main

import (
	"github.com/joaoloss/uol-harvest/cmd"
)

func main() {
	cmd.Execute()
}
