// Command ideas captures, rates, and browses short notes.
package main

import "github.com/mesh-intelligence/ideas/internal/cli"

func main() {
	cli.Execute()
}
