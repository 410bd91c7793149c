package main

import "talehub/internal/cli"

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	cli.Init(version)
	cli.Execute()
}
