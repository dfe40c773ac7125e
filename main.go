package main

import "blockwatch/cmd"

func main() {
	cmd.Execute()
}
