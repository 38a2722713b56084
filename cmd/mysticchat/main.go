package main

import (
	"os"

	"mystic-chat/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
