package main

import (
	"os"

	"treko/cmd/treko/cli"
)

func main() {
	os.Exit(cli.Execute())
}
