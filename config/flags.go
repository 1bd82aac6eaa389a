package config

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli"
)

// optionalBool is a boolean flag value that remembers whether it was set, so
// that an explicit false can override the config file.
type optionalBool struct {
	v *bool
}

func (b *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.v = &v
	return nil
}

func (b *optionalBool) String() string {
	if b == nil || b.v == nil {
		return ""
	}
	return strconv.FormatBool(*b.v)
}

func (b *optionalBool) IsBoolFlag() bool { return true }

func lookupBool(c *cli.Context, name string) *bool {
	if b, ok := c.Generic(name).(*optionalBool); ok {
		return b.v
	}
	return nil
}

// Flags binds every Config field to a command-line flag and an environment
// variable. None of them carry a default value: unset flags are filled from
// the config file and then from Default by Resolve.
func Flags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   "config.file",
			Usage:  "Path to an optional YAML configuration file",
			EnvVar: "EXPORTER_CONFIG_FILE",
		},
		cli.StringFlag{
			Name:   "jellyfin.url",
			Usage:  fmt.Sprintf("Base URL of the Jellyfin server (default %q)", DefaultBaseURL),
			EnvVar: "JELLYFIN_URL",
		},
		cli.StringFlag{
			Name:   "jellyfin.token",
			Usage:  "Jellyfin API key, sent as X-Emby-Token (required)",
			EnvVar: "JELLYFIN_TOKEN",
		},
		cli.GenericFlag{
			Name:   "jellyfin.insecure",
			Usage:  "Skip TLS certificate verification for the Jellyfin server",
			EnvVar: "JELLYFIN_INSECURE",
			Value:  &optionalBool{},
		},
		cli.IntFlag{
			Name:   "interval",
			Usage:  fmt.Sprintf("Seconds between two metrics collections (default %d)", DefaultInterval),
			EnvVar: "EXPORTER_COLLECT_INTERVAL",
		},
		cli.IntFlag{
			Name:   "timeout",
			Usage:  fmt.Sprintf("Timeout in seconds for each Jellyfin API request (default %d)", DefaultTimeout),
			EnvVar: "EXPORTER_REQUEST_TIMEOUT",
		},
		cli.StringFlag{
			Name:   "namespace",
			Usage:  fmt.Sprintf("Prefix for all exported metric names (default %q)", DefaultNamespace),
			EnvVar: "METRIC_NAMESPACE",
		},
		cli.StringFlag{
			Name:   "listen-address",
			Usage:  fmt.Sprintf("Address the metrics endpoint listens on (default %q)", DefaultListenAddress),
			EnvVar: "EXPORTER_LISTEN_ADDRESS",
		},
		cli.GenericFlag{
			Name:   "untranscoded-as-direct",
			Usage:  "Count playing sessions without transcoding info as direct streams",
			EnvVar: "EXPORTER_UNTRANSCODED_AS_DIRECT",
			Value:  &optionalBool{},
		},
	}
}

// FromCLI reads the flags declared in Flags.
func FromCLI(c *cli.Context) (Config, string) {
	return Config{
		Server: JellyfinServerConfig{
			BaseURL:  c.String("jellyfin.url"),
			Token:    c.String("jellyfin.token"),
			Insecure: lookupBool(c, "jellyfin.insecure"),
		},
		Interval:             c.Int("interval"),
		Timeout:              c.Int("timeout"),
		Namespace:            c.String("namespace"),
		ListenAddress:        c.String("listen-address"),
		UntranscodedAsDirect: lookupBool(c, "untranscoded-as-direct"),
	}, c.String("config.file")
}
