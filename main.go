package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	appacl "shadowrelay/application/acl"
	"shadowrelay/application/logging"
	"shadowrelay/application/replay"
	"shadowrelay/infrastructure/acl"
	"shadowrelay/infrastructure/config"
	"shadowrelay/infrastructure/cryptography/replaycache"
	"shadowrelay/infrastructure/cryptography/suite"
	infralogging "shadowrelay/infrastructure/logging"
	"shadowrelay/infrastructure/network/resolver"
	"shadowrelay/infrastructure/network/tcpadapter"
	"shadowrelay/infrastructure/session"
	"shadowrelay/infrastructure/settings"
	"shadowrelay/infrastructure/telemetry"
)

// main assembles a cli.App the way
// _examples/other_examples/126ffac5_koolca-kcptun__client-main.go.go does:
// one flag set, one Action closure that parses Settings and runs until
// signaled.
func main() {
	app := &cli.App{
		Name:  "shadowrelay-server",
		Usage: "an encrypted TCP relay server",
		Flags: config.Flags,
		Action: func(c *cli.Context) error {
			s, err := config.FromContext(c)
			if err != nil {
				return fmt.Errorf("parsing configuration: %w", err)
			}
			return run(s, c.String("config"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "shadowrelay-server: %v\n", err)
		os.Exit(1)
	}
}

// run wires every collaborator from Settings and drives the listening
// ports until an interrupt or terminate signal requests shutdown (SIGHUP is
// logged and otherwise ignored), mirroring the teacher's
// "context.WithCancel + a goroutine reading the signal channel" shutdown
// idiom (main.go). configPath is the -c/--config value, if any, so a
// config-file watch can be attached to the same path Settings itself was
// loaded from.
func run(s settings.Settings, configPath string) error {
	logger := infralogging.NewLogrusLogger(s.Verbose)

	cipherSuite, err := suite.New(s.Method.String(), s.Password)
	if err != nil {
		return fmt.Errorf("initializing cipher suite: %w", err)
	}

	replayCache, err := newReplayCache(s, logger)
	if err != nil {
		return fmt.Errorf("initializing replay cache: %w", err)
	}

	aclList, err := loadACL(s.ACLPath)
	if err != nil {
		return fmt.Errorf("loading ACL file: %w", err)
	}

	dns := resolver.New(s.Nameservers)
	dialer := tcpadapter.New(s.FastOpen, s.Interface)

	ports := make([]int, 0, len(s.Hosts))
	for range s.Hosts {
		ports = append(ports, s.Port)
	}
	registry := telemetry.NewRegistry(ports)

	var metrics *telemetry.Metrics
	if s.MetricsAddress != "" {
		metrics = telemetry.NewMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				logger.Printf("received SIGHUP: reload is driven by the config watcher, if one is active")
				continue
			}
			logger.Printf("received %s, shutting down", sig)
			cancel()
			return
		}
	}()

	var mutable *config.Mutable
	var reloadableACL *reloadingACL
	if configPath != "" {
		mutable = config.NewMutable(s)
		reloadableACL = newReloadingACL(mutable.ACLPath, logger)
		watcher, werr := config.NewWatcher(configPath, logger)
		if werr != nil {
			logger.Errorf("config watcher: %v", werr)
			mutable, reloadableACL = nil, nil
		} else {
			stop := make(chan struct{})
			go watcher.Run(mutable, stop)
			go func() { <-ctx.Done(); close(stop) }()
		}
	}

	var wg sync.WaitGroup
	for _, host := range s.Hosts {
		addr, err := host.Endpoint(s.Port)
		if err != nil {
			return fmt.Errorf("resolving listen address: %w", err)
		}
		ln, err := tcpadapter.Listen(addr)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", addr, err)
		}

		handler := session.NewHandler(ctx, s.Port, s, cipherSuite, replayCache, aclList, dns, dialer, logger, registry, metrics)
		if mutable != nil {
			handler.SetTimeoutSource(mutable.Timeout)
			handler.SetACLSource(reloadableACL.Current)
		}

		srv := session.NewServer(ctx, ln, handler, logger)
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			if err := srv.Run(); err != nil && ctx.Err() == nil {
				logger.Errorf("server on %s exited: %v", addr, err)
			}
		}(addr)
		logger.Printf("listening on %s", addr)
	}

	if s.ManagerAddress != "" {
		exporter := telemetry.NewManagerExporter(registry, s.ManagerAddress, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			exporter.Run(ctx)
		}()
	}

	if metrics != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.Run(ctx, s.MetricsAddress); err != nil {
				logger.Errorf("metrics server exited: %v", err)
			}
		}()
	}

	wg.Wait()
	return nil
}

// newReplayCache picks the in-process FIFO cache, or a shared Redis-backed
// one when --replay-cache-address names a host:port (SPEC_FULL.md's
// multi-process deployment expansion).
func newReplayCache(s settings.Settings, logger logging.Logger) (replay.Cache, error) {
	if s.ReplayCacheAddress == "" {
		return replaycache.New(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: s.ReplayCacheAddress})
	return replaycache.NewRedis(client, "shadowrelay:replay:", 2*time.Minute, logger), nil
}

// loadACL resolves the ACL mode from the file's own [white]/[black]
// sections rather than from a dedicated flag, since Settings carries only
// the path: a populated white list means intentional allow-listing: Mode
// WhiteList; otherwise any black-list entries (or an empty-but-present
// file, used purely for its auto-ban side effect) select ModeBlackList;
// an empty path disables the ACL entirely.
func loadACL(path string) (appacl.ACL, error) {
	if path == "" {
		return acl.New(appacl.ModeDisabled, nil, nil), nil
	}
	white, black, err := acl.LoadFile(path)
	if err != nil {
		return nil, err
	}
	mode := appacl.ModeBlackList
	if len(white) > 0 {
		mode = appacl.ModeWhiteList
	}
	return acl.New(mode, white, black), nil
}

// reloadingACL re-parses the ACL file whenever mutable.ACLPath() names a
// new path, caching the built appacl.ACL between path changes picked up by
// the config watcher so ordinary connections never pay a file read; an
// edit to the ACL file at an unchanged path is not re-read. Grounded on the
// same "cache the expensive value, invalidate on watcher signal" shape
// config.Watcher itself uses for Settings as a whole.
type reloadingACL struct {
	pathFn func() string
	log    logging.Logger

	mu       sync.Mutex
	lastPath string
	lastACL  appacl.ACL
}

func newReloadingACL(pathFn func() string, log logging.Logger) *reloadingACL {
	return &reloadingACL{pathFn: pathFn, log: log}
}

// Current returns the ACL for the currently configured path, rebuilding
// it only when the path has changed since the last call.
func (r *reloadingACL) Current() appacl.ACL {
	path := r.pathFn()

	r.mu.Lock()
	defer r.mu.Unlock()

	if path == r.lastPath && r.lastACL != nil {
		return r.lastACL
	}

	built, err := loadACL(path)
	if err != nil {
		r.log.Errorf("acl: reload of %q failed, keeping previous list: %v", path, err)
		if r.lastACL != nil {
			return r.lastACL
		}
		built = acl.New(appacl.ModeDisabled, nil, nil)
	}
	r.lastPath, r.lastACL = path, built
	return built
}
