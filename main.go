package main

import "github.com/gaurav-prasanna/smartreader/cmd"

func main() {
	cmd.Execute()
}
