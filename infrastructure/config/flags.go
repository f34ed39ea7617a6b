// Package config assembles infrastructure/settings.Settings from the CLI
// surface (spec §6) and/or a JSON config file, using github.com/urfave/cli/v2
// the way _examples/other_examples/126ffac5_koolca-kcptun__client-main.go.go
// uses the v1 predecessor of that library: one flat []cli.Flag slice grouped
// by type (strings, then ints/durations, then bools), a single Action
// closure that copies parsed values into a plain struct, and a "-c path"
// escape hatch whose presence overrides everything parsed from the shell.
// Translated onto v2's actual surface: flags are *pointers* to struct
// literals (StringFlag, IntFlag, BoolFlag, StringSliceFlag for -s/-d, which
// are repeatable here the same way kcptun's flags are not but its -l/-r
// pairing with a JSON override models), and the App is built with
// cli.App{} rather than cli.NewApp() plus field assignment.
package config

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	domaincipher "shadowrelay/domain/cipher"
	"shadowrelay/infrastructure/settings"
)

// Flag names, spelled out once so flags_test.go and main's --help text
// can't drift from the parsing switch below.
const (
	flagServer         = "server"
	flagServerPort     = "server-port"
	flagPassword       = "password"
	flagMethod         = "method"
	flagTimeout        = "timeout"
	flagConfig         = "config"
	flagInterface      = "interface"
	flagDNS            = "dns"
	flagUser           = "user"
	flagUDPOnly        = "udp-only" // accepted, not wired: spec Non-goal (UDP relay out of scope)
	flagOnetimeAuth    = "onetime-auth"
	flagVerbose        = "verbose"
	flagACL            = "acl"
	flagPIDFile        = "pid-file"
	flagFastOpen       = "fast-open"
	flagManagerAddress     = "manager-address"
	flagMetricsAddress     = "metrics-address"
	flagReplayCacheAddress = "replay-cache-address"
)

// Flags is the full cli.Flag set named in spec §6, plus SPEC_FULL.md's
// additive --metrics-address. Short aliases match the original ss-server
// single-letter switches (-s -p -k -m -t -c -i -d -U -A -v -a -f); there
// is no -u switch.
var Flags = []cli.Flag{
	&cli.StringSliceFlag{
		Name:    flagServer,
		Aliases: []string{"s"},
		Usage:   "server address to listen on (repeatable)",
	},
	&cli.IntFlag{
		Name:    flagServerPort,
		Aliases: []string{"p"},
		Value:   8388,
		Usage:   "server port",
	},
	&cli.StringFlag{
		Name:    flagPassword,
		Aliases: []string{"k"},
		Usage:   "password",
	},
	&cli.StringFlag{
		Name:    flagMethod,
		Aliases: []string{"m"},
		Value:   "aes-256-cfb",
		Usage:   "encryption method",
	},
	&cli.StringFlag{
		Name:    flagTimeout,
		Aliases: []string{"t"},
		Value:   "60",
		Usage:   "socket idle timeout in seconds",
	},
	&cli.StringFlag{
		Name:    flagConfig,
		Aliases: []string{"c"},
		Usage:   "path to a JSON config file; overrides all other flags",
	},
	&cli.StringFlag{
		Name:    flagInterface,
		Aliases: []string{"i"},
		Usage:   "network interface to bind outbound target connections to",
	},
	&cli.StringSliceFlag{
		Name:    flagDNS,
		Aliases: []string{"d"},
		Usage:   "DNS nameserver(s) to use instead of the system resolver (repeatable)",
	},
	&cli.StringFlag{
		Name:    flagUser,
		Aliases: []string{"a"},
		Usage:   "user name (accepted and stored; the server does not switch user)",
	},
	&cli.BoolFlag{
		Name:    flagUDPOnly,
		Aliases: []string{"U"},
		Usage:   "UDP relay only (not implemented: TCP relay is this server's entire scope)",
	},
	&cli.BoolFlag{
		Name:    flagOnetimeAuth,
		Aliases: []string{"A"},
		Usage:   "force one-time auth / per-chunk auth for every connection",
	},
	&cli.BoolFlag{
		Name:    flagVerbose,
		Aliases: []string{"v"},
		Usage:   "verbose (debug-level) logging",
	},
	&cli.StringFlag{
		Name:  flagACL,
		Usage: "path to an ACL rule file",
	},
	&cli.StringFlag{
		Name:    flagPIDFile,
		Aliases: []string{"f"},
		Usage:   "PID file path (accepted and stored; the server neither daemonizes nor writes it)",
	},
	&cli.BoolFlag{
		Name:  flagFastOpen,
		Usage: "enable TCP Fast Open on outbound connections",
	},
	&cli.StringFlag{
		Name:  flagManagerAddress,
		Usage: "UNIX socket path or host:port receiving periodic traffic stat reports",
	},
	&cli.StringFlag{
		Name:  flagMetricsAddress,
		Usage: "address to serve a Prometheus /metrics endpoint on",
	},
	&cli.StringFlag{
		Name:  flagReplayCacheAddress,
		Usage: "Redis host:port for a shared replay cache (default: in-process)",
	},
}

// FromContext builds a Settings value from parsed CLI flags. If -c/--config
// names an existing file, it is loaded instead and entirely overrides the
// shell flags, mirroring kcptun's "when the value is not empty, the config
// path must exist ... config from json file, which will override the
// command from shell".
func FromContext(c *cli.Context) (settings.Settings, error) {
	if path := c.String(flagConfig); path != "" {
		return LoadFile(path)
	}

	hosts, err := parseHosts(c.StringSlice(flagServer))
	if err != nil {
		return settings.Settings{}, err
	}

	method, err := domaincipher.Parse(c.String(flagMethod))
	if err != nil {
		return settings.Settings{}, err
	}

	timeout, err := parseTimeout(c.String(flagTimeout))
	if err != nil {
		return settings.Settings{}, err
	}

	return settings.Settings{
		Hosts:          hosts,
		Port:           c.Int(flagServerPort),
		Password:       c.String(flagPassword),
		Method:         method,
		IdleTimeout:    timeout,
		Interface:      c.String(flagInterface),
		Nameservers:    c.StringSlice(flagDNS),
		ForceAuth:      c.Bool(flagOnetimeAuth),
		Verbose:        c.Bool(flagVerbose),
		User:           c.String(flagUser),
		PIDFile:        c.String(flagPIDFile),
		FastOpen:       c.Bool(flagFastOpen),
		ACLPath:        c.String(flagACL),
		ManagerAddress:     c.String(flagManagerAddress),
		MetricsAddress:     c.String(flagMetricsAddress),
		ReplayCacheAddress: c.String(flagReplayCacheAddress),
	}, nil
}

func parseHosts(raw []string) ([]settings.Host, error) {
	if len(raw) == 0 {
		raw = []string{""}
	}
	hosts := make([]settings.Host, 0, len(raw))
	for _, r := range raw {
		h, err := settings.NewHost(r)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return hosts, nil
}

func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return settings.DefaultIdleTimeout, nil
	}
	seconds, err := time.ParseDuration(raw + "s")
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", raw, err)
	}
	return seconds, nil
}
