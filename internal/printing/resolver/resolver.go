package resolver

import (
	"context"
	"strings"
	"sync"
	"time"

	"print-dispatcher/internal/common/logger"
	"print-dispatcher/internal/domain"
	"print-dispatcher/internal/printing/sink"
)

type Config struct {
	Kitchen      string
	Cashier      string
	Target       string
	Vendor       string
	PortPriority string
}

// Source tells which rule bound a role.
type Source string

const (
	SourceExplicit  Source = "explicit"
	SourceTarget    Source = "target"
	SourceDiscovery Source = "discovery"
	SourceNone      Source = "none"
)

// Match tells which discovery step picked the fallback device.
type Match string

const (
	MatchVendorPort Match = "vendor+port"
	MatchVendor     Match = "vendor"
	MatchFirst      Match = "first"
)

type Report struct {
	Kitchen    Source       `json:"kitchen"`
	Cashier    Source       `json:"cashier"`
	Discovered *sink.Device `json:"discovered,omitempty"`
	Match      Match        `json:"match,omitempty"`
}

// Resolve binds the kitchen and cashier roles. Explicit names win, then the
// unified target, then a device picked from the enumerated list.
func Resolve(cfg Config, devices []sink.Device) (domain.Bindings, Report) {
	var b domain.Bindings
	rep := Report{Kitchen: SourceNone, Cashier: SourceNone}

	if v := strings.TrimSpace(cfg.Kitchen); v != "" {
		b.Kitchen, rep.Kitchen = v, SourceExplicit
	}
	if v := strings.TrimSpace(cfg.Cashier); v != "" {
		b.Cashier, rep.Cashier = v, SourceExplicit
	}
	if t := strings.TrimSpace(cfg.Target); t != "" {
		if b.Kitchen == "" {
			b.Kitchen, rep.Kitchen = t, SourceTarget
		}
		if b.Cashier == "" {
			b.Cashier, rep.Cashier = t, SourceTarget
		}
	}
	if b.Kitchen != "" && b.Cashier != "" {
		return b, rep
	}

	dev, match, ok := Discover(devices, cfg.Vendor, cfg.PortPriority)
	if !ok {
		return b, rep
	}
	rep.Discovered, rep.Match = &dev, match
	if b.Kitchen == "" {
		b.Kitchen, rep.Kitchen = dev.Name, SourceDiscovery
	}
	if b.Cashier == "" {
		b.Cashier, rep.Cashier = dev.Name, SourceDiscovery
	}
	return b, rep
}

// Discover picks a fallback printer: vendor token on a preferred port class,
// then vendor token on any port, then the first device.
func Discover(devices []sink.Device, vendor, portPriority string) (sink.Device, Match, bool) {
	if len(devices) == 0 {
		return sink.Device{}, "", false
	}
	vendor = strings.ToUpper(strings.TrimSpace(vendor))
	if vendor != "" {
		for _, class := range PortClasses(portPriority) {
			for _, d := range devices {
				if vendorMatch(d, vendor) && strings.HasPrefix(strings.ToUpper(d.Port), class) {
					return d, MatchVendorPort, true
				}
			}
		}
		for _, d := range devices {
			if vendorMatch(d, vendor) {
				return d, MatchVendor, true
			}
		}
	}
	return devices[0], MatchFirst, true
}

// PortClasses expands the port priority setting. AUTO (or empty) prefers
// plain USB ports, then Epson's TMUSB ports.
func PortClasses(priority string) []string {
	p := strings.ToUpper(strings.TrimSpace(priority))
	if p == "" || p == "AUTO" {
		return []string{"USB", "TMUSB"}
	}
	return []string{p}
}

func vendorMatch(d sink.Device, vendor string) bool {
	return d.Name != "" && strings.Contains(strings.ToUpper(d.Name), vendor)
}

// Resolver caches the bindings and re-runs resolution on demand. While a role
// is unbound, Current retries discovery at most once per refresh interval.
type Resolver struct {
	cfg     Config
	enum    sink.Enumerator
	refresh time.Duration
	now     func() time.Time
	lg      *logger.Logger

	mu         sync.Mutex
	bindings   domain.Bindings
	report     Report
	devices    []sink.Device
	resolvedAt time.Time
	resolved   bool
}

func New(cfg Config, enum sink.Enumerator, refresh time.Duration) *Resolver {
	return &Resolver{
		cfg:     cfg,
		enum:    enum,
		refresh: refresh,
		now:     time.Now,
		lg:      logger.New("printer-resolver"),
	}
}

// Refresh enumerates devices and resolves again. Enumeration failure is
// logged and treated as an empty device list.
func (r *Resolver) Refresh(ctx context.Context) (domain.Bindings, Report) {
	var devices []sink.Device
	if r.enum != nil {
		d, err := r.enum.Printers(ctx)
		if err != nil {
			r.lg.Error("printer_enumeration_failed", err, nil)
		}
		devices = d
	}
	b, rep := Resolve(r.cfg, devices)

	r.mu.Lock()
	r.bindings, r.report, r.devices = b, rep, devices
	r.resolvedAt, r.resolved = r.now(), true
	r.mu.Unlock()

	fields := map[string]any{
		"kitchen": b.Kitchen, "kitchen_source": rep.Kitchen,
		"cashier": b.Cashier, "cashier_source": rep.Cashier,
		"devices": len(devices),
	}
	if rep.Discovered != nil {
		fields["discovered"] = rep.Discovered.Name
		fields["discovered_port"] = rep.Discovered.Port
		fields["match"] = rep.Match
	}
	if b.Empty() {
		r.lg.Warn("no_printer_resolved", fields)
	} else {
		r.lg.Info("printers_resolved", fields)
	}
	return b, rep
}

func (r *Resolver) Current(ctx context.Context) domain.Bindings {
	r.mu.Lock()
	stale := !r.resolved ||
		((r.bindings.Kitchen == "" || r.bindings.Cashier == "") && r.refresh > 0 && r.now().Sub(r.resolvedAt) >= r.refresh)
	b := r.bindings
	r.mu.Unlock()

	if stale {
		b, _ = r.Refresh(ctx)
	}
	return b
}

// Snapshot returns the last resolution without triggering discovery.
func (r *Resolver) Snapshot() (domain.Bindings, Report, []sink.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bindings, r.report, append([]sink.Device(nil), r.devices...)
}
