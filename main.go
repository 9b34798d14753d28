package main

import (
	"os"

	"github.com/li-yechao/aigne-doc-smith-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
