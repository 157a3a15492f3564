package main

import (
	"os"

	"tariffant/cmd/tariffant/cmd"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)

	err := cmd.Execute()
	os.Exit(cmd.NewErrorHandler().Handle(err))
}
