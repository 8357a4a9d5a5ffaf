package main

import "github.com/pilab-dev/keysmith/cmd/genprime/cmd"

func main() {
	cmd.Execute()
}
