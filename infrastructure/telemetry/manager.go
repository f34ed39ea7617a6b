package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"shadowrelay/application/logging"
	"shadowrelay/infrastructure/settings"
)

// statReport is the manager protocol payload (spec §4.J):
// {"stat":{"<port>":<tx+rx>}}.
type statReport struct {
	Stat map[string]uint64 `json:"stat"`
}

// ManagerExporter periodically sends per-port traffic totals to a
// shadowsocks-style manager, over a UNIX-domain datagram socket or a
// UDP host:port (spec §6 "--manager-address path-or-host:port").
type ManagerExporter struct {
	registry *Registry
	address  string
	network  string
	interval time.Duration
	log      logging.Logger
}

// NewManagerExporter resolves address into a dial network ("unixgram" if
// it looks like a filesystem path, "udp" otherwise) and the interval
// spec §6 names (30s, settings.ManagerReportInterval).
func NewManagerExporter(registry *Registry, address string, log logging.Logger) *ManagerExporter {
	network := "udp"
	if len(address) > 0 && address[0] == '/' {
		network = "unixgram"
	}
	return &ManagerExporter{
		registry: registry,
		address:  address,
		network:  network,
		interval: settings.ManagerReportInterval,
		log:      log,
	}
}

// Run sends a report every interval until ctx is canceled. It redials on
// every report since the manager's listening socket may restart
// independently of this process.
func (m *ManagerExporter) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.reportOnce(); err != nil {
				m.log.Errorf("telemetry: manager report failed: %v", err)
			}
		}
	}
}

func (m *ManagerExporter) reportOnce() error {
	conn, err := net.Dial(m.network, m.address)
	if err != nil {
		return fmt.Errorf("dial manager %s: %w", m.address, err)
	}
	defer conn.Close()

	stat := make(map[string]uint64)
	for port, total := range m.registry.Snapshot() {
		stat[fmt.Sprintf("%d", port)] = total
	}
	payload, err := json.Marshal(statReport{Stat: stat})
	if err != nil {
		return fmt.Errorf("marshal stat report: %w", err)
	}
	_, err = conn.Write(payload)
	return err
}
