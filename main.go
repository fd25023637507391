package main

import "github.com/cburschka/lyx-sub006/cmd"

func main() {
	cmd.Execute()
}
