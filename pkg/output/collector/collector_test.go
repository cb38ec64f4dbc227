package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	endpoint string
	port     int
	line     string
	headers  []string
	body     string
}

type recordingSender struct {
	reqs []request
	ok   bool
}

func (s *recordingSender) Send(endpoint string, port int, line string, headers []string, body string) bool {
	s.reqs = append(s.reqs, request{endpoint, port, line, headers, body})
	return s.ok
}

func TestCollectorInitAndAddData(t *testing.T) {
	s := &recordingSender{}
	c := New(Config{Host: "data.example.org", Device: "creek-1", Password: "hunter2"}, s)

	require.Len(t, s.reqs, 1)
	assert.Equal(t, request{"data.example.org", 80, "GET /arduinos/creek-1/init", []string{"X-Password: hunter2"}, ""}, s.reqs[0])

	// a failed delivery is absorbed
	c.OutputData([]string{"tempC", "humidity"}, []float64{21.5, 40})
	require.Len(t, s.reqs, 2)
	assert.Equal(t, request{"data.example.org", 80, "POST /arduinos/creek-1/addData", []string{"X-Password: hunter2"}, "tempC=21.50&humidity=40.00"}, s.reqs[1])
	assert.NoError(t, c.Close())
}

func TestCollectorCustomPort(t *testing.T) {
	s := &recordingSender{ok: true}
	New(Config{Host: "10.0.0.2", Port: 8080, Device: "d"}, s)
	assert.Equal(t, 8080, s.reqs[0].port)
}
