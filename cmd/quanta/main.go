// Command quanta is the CLI entry point for the Quanta state engine.
package main

import "github.com/mesh-intelligence/quanta/internal/cli"

func main() {
	cli.Execute()
}
