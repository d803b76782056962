package main

import "github.com/kozaktomas/facegrep/cmd"

func main() {
	cmd.Execute()
}
