package sink

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type runFunc func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error)

// CUPS prints through the local spooler with `lp -o raw` and enumerates
// queues with `lpstat`.
type CUPS struct {
	run runFunc
}

func NewCUPS() *CUPS { return &CUPS{run: execRun} }

func execRun(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	return cmd.CombinedOutput()
}

func (c *CUPS) Send(ctx context.Context, device string, data []byte) error {
	out, err := c.run(ctx, "lp", []string{"-d", device, "-o", "raw", "-t", "ticket"}, data)
	if err != nil {
		return fmt.Errorf("lp -d %s: %w: %s", device, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *CUPS) Printers(ctx context.Context) ([]Device, error) {
	out, err := c.run(ctx, "lpstat", []string{"-v"}, nil)
	if err != nil {
		return nil, fmt.Errorf("lpstat -v: %w: %s", err, strings.TrimSpace(string(out)))
	}
	devices := parseDeviceURIs(out)

	// Status is informational only; a failing lpstat -p keeps the list.
	if st, err := c.run(ctx, "lpstat", []string{"-p"}, nil); err == nil {
		status := parsePrinterStatus(st)
		for i := range devices {
			devices[i].Status = status[devices[i].Name]
		}
	}
	return devices, nil
}

// parseDeviceURIs reads lines like
// "device for EPSON_TM-T20: usb://EPSON/TM-T20?serial=1".
func parseDeviceURIs(out []byte) []Device {
	var devices []Device
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		rest, ok := strings.CutPrefix(line, "device for ")
		if !ok {
			continue
		}
		name, uri, ok := strings.Cut(rest, ":")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		devices = append(devices, Device{Name: strings.TrimSpace(name), Port: strings.TrimSpace(uri)})
	}
	return devices
}

// parsePrinterStatus reads lines like "printer EPSON_TM-T20 is idle.  enabled since ..."
// and "printer Kitchen disabled since ...".
func parsePrinterStatus(out []byte) map[string]string {
	status := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 3 || f[0] != "printer" {
			continue
		}
		st := f[2]
		if st == "is" && len(f) > 3 {
			st = f[3]
		}
		status[f[1]] = strings.TrimSuffix(st, ".")
	}
	return status
}
