package sink

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulated_VirtualDeviceNeverReachesInner(t *testing.T) {
	var calls atomic.Int32
	s := NewSimulated(Func(func(context.Context, string, []byte) error {
		calls.Add(1)
		return errors.New("must not be called")
	}))

	for _, dev := range []string{"Microsoft Print to PDF", "cups-pdf", "Virtual pdf writer"} {
		require.NoError(t, s.Send(context.Background(), dev, []byte("x")))
	}
	assert.Zero(t, calls.Load())

	require.Error(t, s.Send(context.Background(), "EPSON TM-T20", []byte("x")))
	assert.EqualValues(t, 1, calls.Load())
}

func TestTimeout_BoundsHangingTransport(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	hang := Func(func(context.Context, string, []byte) error {
		<-release
		return nil
	})

	start := time.Now()
	err := Timeout{Inner: hang, Limit: 50 * time.Millisecond}.Send(context.Background(), "EPSON", nil)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTimeout_PassesThroughResult(t *testing.T) {
	boom := errors.New("paper out")
	err := Timeout{Inner: Func(func(context.Context, string, []byte) error { return boom }), Limit: time.Second}.
		Send(context.Background(), "EPSON", nil)
	require.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrTimeout))

	err = Timeout{Inner: Func(func(context.Context, string, []byte) error { return nil }), Limit: time.Second}.
		Send(context.Background(), "EPSON", nil)
	require.NoError(t, err)
}

func TestMux_RoutesByScheme(t *testing.T) {
	var got []string
	record := func(kind string) Sink {
		return Func(func(_ context.Context, device string, _ []byte) error {
			got = append(got, kind+":"+device)
			return nil
		})
	}
	m := Mux{Network: record("net"), Spooler: record("spool")}

	require.NoError(t, m.Send(context.Background(), "tcp://10.0.0.5:9100", nil))
	require.NoError(t, m.Send(context.Background(), "EPSON_TM-T20", nil))
	assert.Equal(t, []string{"net:tcp://10.0.0.5:9100", "spool:EPSON_TM-T20"}, got)
}

func TestTCP_StreamsBytes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		b, _ := io.ReadAll(conn)
		received <- b
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, TCP{}.Send(ctx, "tcp://"+ln.Addr().String(), []byte{0x1b, '@', 'h', 'i'}))

	select {
	case b := <-received:
		assert.Equal(t, []byte{0x1b, '@', 'h', 'i'}, b)
	case <-time.After(2 * time.Second):
		t.Fatal("printer never received data")
	}
}

func TestCUPS_SendUsesRawQueue(t *testing.T) {
	var gotName string
	var gotArgs []string
	var gotStdin []byte
	c := &CUPS{run: func(_ context.Context, name string, args []string, stdin []byte) ([]byte, error) {
		gotName, gotArgs, gotStdin = name, args, stdin
		return []byte("request id is EPSON-12 (1 file(s))"), nil
	}}

	require.NoError(t, c.Send(context.Background(), "EPSON_TM-T20", []byte("ticket")))
	assert.Equal(t, "lp", gotName)
	assert.Equal(t, []string{"-d", "EPSON_TM-T20", "-o", "raw", "-t", "ticket"}, gotArgs)
	assert.Equal(t, []byte("ticket"), gotStdin)

	c.run = func(context.Context, string, []string, []byte) ([]byte, error) {
		return []byte("lp: The printer or class does not exist."), errors.New("exit status 1")
	}
	err := c.Send(context.Background(), "Ghost", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestCUPS_Printers(t *testing.T) {
	c := &CUPS{run: func(_ context.Context, _ string, args []string, _ []byte) ([]byte, error) {
		switch args[0] {
		case "-v":
			return []byte("device for EPSON_TM-T20: usb://EPSON/TM-T20?serial=1\n" +
				"device for Office: ipp://10.0.0.9/ipp/print\n" +
				"garbage line\n"), nil
		case "-p":
			return []byte("printer EPSON_TM-T20 is idle.  enabled since Mon 19 Oct 2026\n" +
				"printer Office disabled since Mon 19 Oct 2026 -\n"), nil
		}
		return nil, errors.New("unexpected")
	}}

	devices, err := c.Printers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Device{
		{Name: "EPSON_TM-T20", Port: "usb://EPSON/TM-T20?serial=1", Status: "idle"},
		{Name: "Office", Port: "ipp://10.0.0.9/ipp/print", Status: "disabled"},
	}, devices)
}

func TestCUPS_PrintersFailure(t *testing.T) {
	c := &CUPS{run: func(context.Context, string, []string, []byte) ([]byte, error) {
		return []byte("lpstat: No destinations added."), errors.New("exit status 1")
	}}
	_, err := c.Printers(context.Background())
	require.Error(t, err)
}
