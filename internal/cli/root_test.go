package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "print-dispatcher", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"run", "printers", "test-print", "migrate", "watch", "submit"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	f := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, f)
	assert.Equal(t, "c", f.Shorthand)
	require.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

const staticConfig = `
database:
  driver: sqlite
  path: %s
feed:
  source: none
printers:
  discovery: static
  vendor: EPSON
  devices:
    - {name: "Microsoft Print to PDF", port: "PORTPROMPT:"}
    - {name: "EPSON TM-T20III Receipt", port: "USB001", status: idle}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPrintersCommand(t *testing.T) {
	cfg := writeConfig(t, fmt.Sprintf(staticConfig, filepath.Join(t.TempDir(), "orders.db")))
	out, err := execute(t, "printers", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Printers (2):")
	assert.Contains(t, out, "kitchen: EPSON TM-T20III Receipt (discovery)")
	assert.Contains(t, out, "discovered: EPSON TM-T20III Receipt on USB001 by vendor+port")
}

func TestTestPrintCommand_VirtualDevice(t *testing.T) {
	cfg := writeConfig(t, fmt.Sprintf(staticConfig, filepath.Join(t.TempDir(), "orders.db")))
	out, err := execute(t, "test-print", "--config", cfg, "--device", "Microsoft Print to PDF")
	require.NoError(t, err)
	assert.Contains(t, out, "kitchen -> Microsoft Print to PDF: ok")
}

func TestMigrateCommand_SQLite(t *testing.T) {
	cfg := writeConfig(t, fmt.Sprintf(staticConfig, filepath.Join(t.TempDir(), "orders.db")))
	out, err := execute(t, "migrate", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "schema applied (sqlite)")
}

func TestWatchCommand_RequiresRabbit(t *testing.T) {
	cfg := writeConfig(t, fmt.Sprintf(staticConfig, filepath.Join(t.TempDir(), "orders.db")))
	_, err := execute(t, "watch", "--config", cfg)
	assert.ErrorContains(t, err, "rabbitmq.enabled")
}

func TestSubmitCommand_SQLite(t *testing.T) {
	cfg := writeConfig(t, fmt.Sprintf(staticConfig, filepath.Join(t.TempDir(), "orders.db")))
	order := filepath.Join(t.TempDir(), "order.json")
	require.NoError(t, os.WriteFile(order, []byte(`{
		"order_number": "T-12",
		"customer_info": {"name": "Aiko"},
		"items": [{"name": "Ramen", "quantity": 2, "price": "12.50"}, {"name": "Gyoza", "price": 6}]
	}`), 0o600))

	out, err := execute(t, "submit", "--config", cfg, "--file", order)
	require.NoError(t, err)
	assert.Contains(t, out, "order T-12 stored (id 1, total 31.00, pending_print)")
}

func TestSubmitCommand_RejectsEmptyOrder(t *testing.T) {
	cfg := writeConfig(t, fmt.Sprintf(staticConfig, filepath.Join(t.TempDir(), "orders.db")))
	cmd := NewRootCommand()
	cmd.SetIn(bytes.NewBufferString(`{"items": []}`))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"submit", "--config", cfg})
	assert.ErrorContains(t, cmd.Execute(), "at least one item")
}

func TestMissingConfig(t *testing.T) {
	_, err := execute(t, "printers", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
