package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	domaincipher "shadowrelay/domain/cipher"
	"shadowrelay/infrastructure/settings"
)

// fileConfig mirrors the shape of the classic ss-server config.json (server,
// server_port, password, method, timeout in seconds) extended with this
// server's additive fields. Settings.Host and domaincipher.Method already
// carry their own MarshalJSON/UnmarshalJSON (infrastructure/settings/host.go,
// domain/cipher/method.go), so this struct reuses them directly rather than
// re-deriving a parallel string encoding.
type fileConfig struct {
	Server         []settings.Host     `json:"server"`
	ServerPort     int                 `json:"server_port"`
	Password       string              `json:"password"`
	Method         domaincipher.Method `json:"method"`
	Timeout        int                 `json:"timeout"`
	Interface      string              `json:"interface,omitempty"`
	Nameservers    []string            `json:"nameservers,omitempty"`
	ForceAuth      bool                `json:"onetime_auth,omitempty"`
	Verbose        bool                `json:"verbose,omitempty"`
	User           string              `json:"user,omitempty"`
	PIDFile        string              `json:"pid_file,omitempty"`
	FastOpen       bool                `json:"fast_open,omitempty"`
	ACLPath        string              `json:"acl,omitempty"`
	ManagerAddress string              `json:"manager_address,omitempty"`
	MetricsAddress string              `json:"metrics_address,omitempty"`
	ReplayCacheAddress string          `json:"replay_cache_address,omitempty"`
}

// LoadFile reads and validates a JSON config file into a Settings value.
func LoadFile(path string) (settings.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("read config %q: %w", path, err)
	}
	return parseFileConfig(data)
}

func parseFileConfig(data []byte) (settings.Settings, error) {
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return settings.Settings{}, fmt.Errorf("parse config: %w", err)
	}
	if len(fc.Server) == 0 {
		fc.Server = []settings.Host{{}}
	}
	timeout := settings.DefaultIdleTimeout
	if fc.Timeout > 0 {
		timeout = time.Duration(fc.Timeout) * time.Second
	}
	return settings.Settings{
		Hosts:          fc.Server,
		Port:           fc.ServerPort,
		Password:       fc.Password,
		Method:         fc.Method,
		IdleTimeout:    timeout,
		Interface:      fc.Interface,
		Nameservers:    fc.Nameservers,
		ForceAuth:      fc.ForceAuth,
		Verbose:        fc.Verbose,
		User:           fc.User,
		PIDFile:        fc.PIDFile,
		FastOpen:       fc.FastOpen,
		ACLPath:        fc.ACLPath,
		ManagerAddress:     fc.ManagerAddress,
		MetricsAddress:     fc.MetricsAddress,
		ReplayCacheAddress: fc.ReplayCacheAddress,
	}, nil
}
