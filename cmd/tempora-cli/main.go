package main

import (
	"os"

	"github.com/alecthomas/kong"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/tempora-db/tempora/pkg/util/log"
)

type globalOptions struct {
	ConfigFile string `help:"path to a yaml config file" short:"c"`
	LogLevel   string `help:"log level (debug, info, warn, error)" default:"info"`
}

var cli struct {
	globalOptions

	Parse   parseCmd   `cmd:"" help:"Parse a temporal literal and print its normalized form."`
	Convert convertCmd `cmd:"" help:"Convert a temporal value between text, wkb, hexwkb and mfjson."`
	Agg     aggCmd     `cmd:"" help:"Aggregate temporal values from input files."`
	Inspect inspectCmd `cmd:"" help:"Summarize a temporal value."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("tempora-cli"),
		kong.Description("temporal-value toolbox"),
		kong.UsageOnError(),
	)

	logger := log.New(cli.LogLevel)
	cfg, err := loadConfig(cli.ConfigFile)
	if err != nil {
		level.Error(logger).Log("msg", "failed to load config", "err", err)
		os.Exit(1)
	}

	err = ctx.Run(&appContext{cfg: cfg, logger: logger})
	if err != nil {
		level.Error(logger).Log("msg", "command failed", "err", err)
		os.Exit(1)
	}
}

type appContext struct {
	cfg    *config
	logger kitlog.Logger
}
