// Command nvst drives an agent-based development workflow: define,
// prototype, test, refactor.
package main

import "nvst/internal/cli"

func main() {
	cli.Execute()
}
