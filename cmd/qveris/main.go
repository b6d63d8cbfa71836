package main

import "github.com/qverisai/qveris-cli/cmd/qveris/cmd"

func main() {
	cmd.Execute()
}
