package main

import (
	"fmt"
	"os"

	"github.com/lemarier/xtra/cmd/mailboxd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
