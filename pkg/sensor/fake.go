package sensor

import (
	"math/rand"
	"strings"
	"sync"
)

// FakeSensor produces random values in 0..4.096 scaled and offset per
// name. Scale and offset keys match names case-insensitively, since config
// loading may lower-case map keys.
type FakeSensor struct {
	names   []string
	scales  map[string]float64
	offsets map[string]float64
	mu      sync.Mutex
}

func NewFakeSensor(names []string, scales, offsets map[string]float64) *FakeSensor {
	return &FakeSensor{names: names, scales: lowerKeys(scales), offsets: lowerKeys(offsets)}
}

func lowerKeys(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

func (f *FakeSensor) ValueCount() int { return len(f.names) }

func (f *FakeSensor) Name(i int) string { return f.names[i] }

func (f *FakeSensor) Value(i int) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw := int16(rand.Intn(32767))
	scale := 1.0
	off := 0.0
	key := strings.ToLower(f.names[i])
	if v, ok := f.scales[key]; ok {
		scale = v
	}
	if v, ok := f.offsets[key]; ok {
		off = v
	}
	return float64(raw)/32767.0*4.096*scale + off
}
