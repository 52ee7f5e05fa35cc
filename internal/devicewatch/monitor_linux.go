//go:build linux

package devicewatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"capdeck/internal/logging"
)

// Monitor listens for udev remove events on the video4linux subsystem.
type Monitor struct {
	logger  *slog.Logger
	handler Handler

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// New returns a monitor that calls handler for each removed device.
func New(logger *slog.Logger, handler Handler) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		logger:  logging.NewComponentLogger(logger, "device-watch"),
		handler: handler,
	}
}

// Start connects to the netlink socket. A connection failure is logged and
// leaves the monitor idle.
func (m *Monitor) Start(ctx context.Context) error {
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
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket; device removal detected only when capture fails", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon may open netlink sockets"),
			logging.String(logging.FieldImpact, "unplugged cameras are noticed later"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true
	go m.loop(ctx, conn, m.quit)

	m.logger.Info("device monitor started", logging.String(logging.FieldEventType, "device_monitor_started"))
	return nil
}

// Stop closes the netlink connection.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.quit)
	m.quit = nil
	_ = m.conn.Close()
	m.conn = nil
	m.running = false
	m.logger.Info("device monitor stopped", logging.String(logging.FieldEventType, "device_monitor_stopped"))
}

// Running reports whether the monitor is connected.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, removalMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "device removal may go unnoticed"),
			)
		}
	}
}

// removalMatcher matches ACTION=remove, SUBSYSTEM=video4linux.
func removalMatcher() netlink.Matcher {
	action := "remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	device := deviceName(uevent)
	if device == "" {
		m.logger.Debug("ignoring event without device name", logging.String("kobj", uevent.KObj))
		return
	}
	m.logger.Info("capture device removed",
		logging.String(logging.FieldEventType, "device_removed"),
		logging.String(logging.FieldDevice, device),
	)
	if m.handler != nil {
		m.handler(device)
	}
}

func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			devname = "/dev/" + devname
		}
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(strings.TrimSuffix(devpath, "/"), "/")
	return "/dev/" + parts[len(parts)-1]
}
