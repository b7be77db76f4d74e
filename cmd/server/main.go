package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/linkstash/cmd/server/internal/commands"
	"github.com/wolfeidau/linkstash/internal/config"
)

var (
	version = "dev"
	cli     struct {
		Debug    bool               `help:"Enable debug mode." env:"LINKSTASH_DEBUG"`
		LogLevel string             `help:"Log level (trace, debug, info, warn, error), overrides --debug." env:"LINKSTASH_LOG_LEVEL"`
		Version  kong.VersionFlag   `help:"Print version and exit."`
		Config   kong.ConfigFlag    `help:"Load flags from a TOML or YAML config file."`
		Server   commands.ServerCmd `cmd:"" default:"withargs" help:"Start the linkstash server (pages, login and API)"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("linkstash"),
		kong.Description("Bookmark service with OpenID Connect login, sessions and API keys."),
		kong.Vars{
			"version": version,
		},
		kong.Configuration(config.Any, "/etc/linkstash/config.toml", "~/.config/linkstash/config.toml", "./linkstash.toml"),
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, LogLevel: cli.LogLevel, Version: version})
	cmd.FatalIfErrorf(err)
}
