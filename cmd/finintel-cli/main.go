package main

import (
	"github.com/alecthomas/kong"

	"finintel/internal/cli"
)

// Globals holds options shared by every command.
type Globals struct {
	LogLevel  string `name:"log-level" default:"info" env:"LOG_LEVEL" help:"Log level (debug, info, warn, error)."`
	LogFormat string `name:"log-format" default:"text" env:"LOG_FORMAT" enum:"text,json" help:"Log format (text, json)."`
}

var cmd struct {
	Globals `embed:""`

	Import importCmd `cmd:"" help:"Import a finance workbook into the SQLite store."`
	Report reportCmd `cmd:"" help:"Compute the finance report and print it as JSON."`
	Demo   demoCmd   `cmd:"" help:"Write the built-in demo dataset as a workbook."`
}

func main() {
	cli.LoadEnvFile()
	ctx := kong.Parse(&cmd,
		kong.Name("finintel-cli"),
		kong.Description("Company finance aggregation tools."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cmd.Globals)
	ctx.FatalIfErrorf(err)
}
