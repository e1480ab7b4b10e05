package main

import (
	"os"

	"github.com/Chen-yuping/Education-system/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
