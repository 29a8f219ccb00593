package main

import (
	"Playly/cmd"
)

func main() {
	cmd.Execute()
}
