package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCounters(t *testing.T) {
	before := testutil.ToFloat64(Ticks)
	Ticks.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Ticks))

	Sends.WithLabelValues("ok").Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "datalogger_ticks_total")
	assert.Contains(t, string(body), `datalogger_transport_sends_total{result="ok"}`)
}
