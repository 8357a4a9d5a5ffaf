package main

import "github.com/pilab-dev/keysmith/cmd/geninput/cmd"

func main() {
	cmd.Execute()
}
