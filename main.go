package main

import (
	"os"

	"github.com/scan-io-git/convex-doctor/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
