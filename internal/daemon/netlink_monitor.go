package daemon

import (
	"context"
	"strings"
	"sync"

	"log/slog"

	"github.com/pilebones/go-udev/netlink"

	"marquee/internal/logging"
)

// adapterMonitor listens for udev netlink events on the bluetooth subsystem.
// When an adapter (re)appears the sign supervisor gets kicked so the next
// connect attempt starts immediately instead of waiting out the reconnect
// delay.
type adapterMonitor struct {
	logger *slog.Logger
	kick   func()

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

func newAdapterMonitor(logger *slog.Logger, kick func()) *adapterMonitor {
	return &adapterMonitor{
		logger: logging.NewComponentLogger(logger, "adapter-monitor"),
		kick:   kick,
	}
}

// Start begins listening for udev netlink events. Netlink access needs
// kernel support and permissions; failure to connect is non-fatal because
// the supervisor reconnects on its own schedule anyway.
func (m *adapterMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; adapter hotplug will not trigger reconnects",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "reconnects wait out the full retry delay after adapter hotplug"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("adapter monitor started",
		logging.String(logging.FieldEventType, "netlink_monitor_started"),
	)
	return nil
}

// Stop shuts down the netlink monitor.
func (m *adapterMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("adapter monitor stopped",
		logging.String(logging.FieldEventType, "netlink_monitor_stopped"),
	)
}

// Running reports whether the monitor is active.
func (m *adapterMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *adapterMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(events, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "adapter hotplug detection may be affected"),
			)
		}
	}
}

// buildMatcher matches bluetooth subsystem add and remove events.
func (m *adapterMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "bluetooth",
		},
	})
	return rules
}

func (m *adapterMonitor) handleEvent(uevent netlink.UEvent) {
	adapter := adapterName(uevent)

	switch uevent.Action {
	case netlink.ADD:
		m.logger.Info("bluetooth adapter added; kicking sign reconnect",
			logging.String(logging.FieldEventType, "bluetooth_adapter_added"),
			logging.String("adapter", adapter),
		)
		if m.kick != nil {
			m.kick()
		}
	case netlink.REMOVE:
		m.logger.Warn("bluetooth adapter removed",
			logging.String(logging.FieldEventType, "bluetooth_adapter_removed"),
			logging.String("adapter", adapter),
			logging.String(logging.FieldImpact, "sign connection will drop until an adapter returns"),
		)
	default:
		m.logger.Debug("ignoring bluetooth event",
			logging.String("action", string(uevent.Action)),
			logging.String("adapter", adapter),
		)
	}
}

// adapterName extracts the hci device name from a uevent. Bluetooth events
// carry no DEVNAME, so it comes from the DEVPATH tail.
func adapterName(uevent netlink.UEvent) string {
	if name := uevent.Env["DEVNAME"]; name != "" {
		return name
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		devpath = uevent.KObj
	}
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return parts[len(parts)-1]
}
