// The main package for the cambutal-seo executable.
package main

import (
	"github.com/JakeFAU/cambutal-seo/cmd"
)

// main defers all execution to the Cobra command tree.
func main() {
	cmd.Execute()
}
