package main

import (
	"os"

	"restic-backup-service/src/cli"
)

func main() {
	os.Exit(cli.Execute())
}
