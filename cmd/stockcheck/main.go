package main

import (
	"os"

	"stockcheckertool/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
