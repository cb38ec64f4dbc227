package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWifiLinkAssociate(t *testing.T) {
	var gotName string
	var gotArgs []string
	w := &WifiLink{SSID: "field", Password: "pw", Interface: "wlan0"}
	w.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return nil, nil
	}

	require.NoError(t, w.Associate())
	assert.Equal(t, "nmcli", gotName)
	assert.Equal(t, []string{"device", "wifi", "connect", "field", "password", "pw", "ifname", "wlan0"}, gotArgs)
	assert.Equal(t, "field", w.String())
}

func TestWifiLinkOpenNetwork(t *testing.T) {
	w := &WifiLink{SSID: "open"}
	assert.Equal(t, []string{"device", "wifi", "connect", "open"}, w.args())
}

func TestWifiLinkError(t *testing.T) {
	w := &WifiLink{SSID: "field"}
	w.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Error: No network with SSID 'field' found.\n"), errors.New("exit status 10")
	}
	err := w.Associate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No network with SSID")
}

func TestNopLink(t *testing.T) {
	assert.NoError(t, NopLink{}.Associate())
	assert.Equal(t, "wired", NopLink{}.String())
}
