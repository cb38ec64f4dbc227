package transport

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Link is the physical network the transport rides on.
type Link interface {
	Associate() error
	String() string
}

// NopLink is a link that is always up, for wired hosts.
type NopLink struct{}

func (NopLink) Associate() error { return nil }
func (NopLink) String() string   { return "wired" }

// WifiLink joins a WLAN through NetworkManager.
type WifiLink struct {
	SSID      string
	Password  string
	Interface string
	Timeout   time.Duration

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (w *WifiLink) String() string { return w.SSID }

func (w *WifiLink) args() []string {
	args := []string{"device", "wifi", "connect", w.SSID}
	if w.Password != "" {
		args = append(args, "password", w.Password)
	}
	if w.Interface != "" {
		args = append(args, "ifname", w.Interface)
	}
	return args
}

func (w *WifiLink) Associate() error {
	run := w.run
	if run == nil {
		run = runCommand
	}
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := run(ctx, "nmcli", w.args()...)
	if err != nil {
		return fmt.Errorf("nmcli: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
