package nats

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	subjects []string
	data     [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	f.subjects = append(f.subjects, subj)
	f.data = append(f.data, data)
	return f.err
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func fixed() time.Time { return time.Unix(1700000000, 0) }

func TestOutputData(t *testing.T) {
	fc := &fakeConn{}
	n := newWithConn(fc, "", "river-01", fixed)

	n.OutputData([]string{"air_temperature", "ultrasonic_distance"}, []float64{21.5, math.NaN()})

	require.Len(t, fc.data, 1)
	assert.Equal(t, DefaultSubject, fc.subjects[0])
	var msg Message
	require.NoError(t, json.Unmarshal(fc.data[0], &msg))
	assert.Equal(t, "river-01", msg.Device)
	assert.Equal(t, int64(1700000000), msg.Timestamp)
	assert.Equal(t, 21.5, msg.Readings["air_temperature"])
	v, ok := msg.Readings["ultrasonic_distance"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestOutputDataAbsorbsPublishError(t *testing.T) {
	fc := &fakeConn{err: errors.New("no responders")}
	n := newWithConn(fc, "site.a", "dev", fixed)
	assert.NotPanics(t, func() { n.OutputData([]string{"x"}, []float64{1}) })
	assert.Equal(t, []string{"site.a"}, fc.subjects)
}

func TestCloseDrains(t *testing.T) {
	fc := &fakeConn{}
	n := newWithConn(fc, "", "dev", fixed)
	require.NoError(t, n.Close())
	assert.True(t, fc.drained)
}
