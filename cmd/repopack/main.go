// Repopack CLI entry point
//
// Repopack packs a source directory into a single AI-friendly document,
// reports token metrics for popular model encodings, and can drive remote
// llms.txt generation jobs against the repopack API.
package main

import "github.com/codetide/repopack/internal/presentation/cli/commands"

func main() {
	commands.Execute()
}
