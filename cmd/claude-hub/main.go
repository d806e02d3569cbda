package main

import "github.com/thamam/claude-hub/internal/cli"

func main() {
	cli.Execute()
}
