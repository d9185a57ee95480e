package main

import "github.com/OpenTraceLab/OpenTraceBench/cmd/benchctl/cmd"

func main() {
	cmd.Execute()
}
