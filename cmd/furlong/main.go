package main

import (
	"fmt"
	"os"
)

func execute() error {
	return newRootCommand().Execute()
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
