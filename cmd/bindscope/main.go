// Package main provides the BindScope command line entrypoint.
package main

import "github.com/epitopelab/bindscope/internal/cli"

func main() {
	cli.Execute()
}
