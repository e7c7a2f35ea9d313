package config

import (
	"fmt"
	"math"
	"sync"
)

// Frequencies are the capture rates that may change while running.
type Frequencies struct {
	RGBHz   float64 `json:"rgb_hz"`
	DepthHz float64 `json:"depth_hz"`
}

// FrequencyUpdate carries a partial change; nil fields are left as they are.
type FrequencyUpdate struct {
	RGBHz   *float64 `json:"rgb_hz"`
	DepthHz *float64 `json:"depth_hz"`
}

// Live holds the current frequencies for readers on other goroutines.
type Live struct {
	mu sync.RWMutex
	f  Frequencies
}

func NewLive(f Frequencies) *Live {
	return &Live{f: f}
}

func (l *Live) Snapshot() Frequencies {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.f
}

func (l *Live) Set(f Frequencies) error {
	if err := checkHz("rgb_hz", f.RGBHz); err != nil {
		return err
	}
	if err := checkHz("depth_hz", f.DepthHz); err != nil {
		return err
	}
	l.mu.Lock()
	l.f = f
	l.mu.Unlock()
	return nil
}

// Update applies the non-nil fields of u and returns the result.
func (l *Live) Update(u FrequencyUpdate) (Frequencies, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.f
	if u.RGBHz != nil {
		next.RGBHz = *u.RGBHz
	}
	if u.DepthHz != nil {
		next.DepthHz = *u.DepthHz
	}
	if err := checkHz("rgb_hz", next.RGBHz); err != nil {
		return l.f, err
	}
	if err := checkHz("depth_hz", next.DepthHz); err != nil {
		return l.f, err
	}
	l.f = next
	return next, nil
}

// A frequency <= 0 is allowed and pauses that stream.
func checkHz(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a finite number", name)
	}
	return nil
}
