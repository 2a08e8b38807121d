package main

import (
	"pitchwatch/internal/cli"
)

func main() {
	cli.Execute()
}
