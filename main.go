package main

import "github.com/libocca/occamake/cmd"

func main() {
	cmd.Execute()
}
