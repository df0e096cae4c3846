package main

import "github.com/toolpin/toolpin/cmd/toolpin/cmd"

func main() {
	cmd.Execute()
}
