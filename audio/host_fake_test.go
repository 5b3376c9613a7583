// =================================================================================
//
//			patchbay - https://www.foxhollow.cc/projects/patchbay/
//
//		 Patchbay is a small audio routing engine that continuously copies
//	  samples between hardware devices with channel mapping and per-route gain
//
//		 Copyright (c) 2026 Steve Cross <flip@foxhollow.cc>
//
//			Licensed under the Apache License, Version 2.0 (the "License");
//			you may not use this file except in compliance with the License.
//			You may obtain a copy of the License at
//
//			     http://www.apache.org/licenses/LICENSE-2.0
//
//			Unless required by applicable law or agreed to in writing, software
//			distributed under the License is distributed on an "AS IS" BASIS,
//			WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//			See the License for the specific language governing permissions and
//			limitations under the License.
//
// =================================================================================
package audio

import (
	"errors"
	"sync"
)

// fakeHost implements Host for tests: devices are whatever the test says
// they are, and the test drives the "hardware" callbacks synchronously via
// pushInput and pullOutput.
type fakeHost struct {
	mu sync.Mutex

	devices []Device

	failInputOpen  map[string]bool
	failOutputOpen map[string]bool
	failRateSet    map[string]bool
	failBufferSet  map[string]bool

	inputs  map[string]*fakeStream
	outputs map[string]*fakeStream

	stopOrder []string
}

type fakeStream struct {
	host    *fakeHost
	uid     string
	kind    string // "in" or "out"
	cfg     StreamConfig
	input   InputFunc
	render  RenderFunc
	started bool
	stopped bool
}

func newFakeHost(devices ...Device) *fakeHost {
	return &fakeHost{
		devices:        devices,
		failInputOpen:  make(map[string]bool),
		failOutputOpen: make(map[string]bool),
		failRateSet:    make(map[string]bool),
		failBufferSet:  make(map[string]bool),
		inputs:         make(map[string]*fakeStream),
		outputs:        make(map[string]*fakeStream),
	}
}

func (h *fakeHost) Devices() ([]Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	devices := make([]Device, len(h.devices))
	copy(devices, h.devices)

	return devices, nil
}

func (h *fakeHost) setDevices(devices ...Device) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.devices = devices
}

func (h *fakeHost) DefaultDevices() (string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	inputUID := ""
	outputUID := ""

	for i := range h.devices {
		if h.devices[i].DefaultInput && inputUID == "" {
			inputUID = h.devices[i].UID
		}
		if h.devices[i].DefaultOutput && outputUID == "" {
			outputUID = h.devices[i].UID
		}
	}

	return inputUID, outputUID, nil
}

func (h *fakeHost) SetNominalSampleRate(uid string, rate int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failRateSet[uid] {
		return 0, errors.New("simulated sample rate failure")
	}

	return rate, nil
}

func (h *fakeHost) SetBufferFrames(uid string, frames int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failBufferSet[uid] {
		return 0, errors.New("simulated buffer size failure")
	}

	return frames, nil
}

func (h *fakeHost) OpenInputStream(cfg StreamConfig, fn InputFunc) (Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failInputOpen[cfg.DeviceUID] {
		return nil, errors.New("simulated input open failure")
	}

	s := &fakeStream{host: h, uid: cfg.DeviceUID, kind: "in", cfg: cfg, input: fn}
	h.inputs[cfg.DeviceUID] = s

	return s, nil
}

func (h *fakeHost) OpenOutputStream(cfg StreamConfig, fn RenderFunc) (Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failOutputOpen[cfg.DeviceUID] {
		return nil, errors.New("simulated output open failure")
	}

	s := &fakeStream{host: h, uid: cfg.DeviceUID, kind: "out", cfg: cfg, render: fn}
	h.outputs[cfg.DeviceUID] = s

	return s, nil
}

func (h *fakeHost) Close() error {
	return nil
}

func (s *fakeStream) Start() error {
	s.started = true
	return nil
}

func (s *fakeStream) Stop() error {
	s.started = false
	s.stopped = true

	s.host.mu.Lock()
	s.host.stopOrder = append(s.host.stopOrder, s.kind+":"+s.uid)
	s.host.mu.Unlock()

	return nil
}

// pushInput drives one input hardware callback with interleaved samples.
func (h *fakeHost) pushInput(uid string, interleaved []float32, frames int) {
	h.mu.Lock()
	s := h.inputs[uid]
	h.mu.Unlock()

	if s != nil && s.started {
		s.input(interleaved, frames)
	}
}

// pullOutput drives one output render callback and returns the interleaved
// buffer the "hardware" would play.
func (h *fakeHost) pullOutput(uid string, frames int) []float32 {
	h.mu.Lock()
	s := h.outputs[uid]
	h.mu.Unlock()

	if s == nil || !s.started {
		return nil
	}

	out := make([]float32, frames*s.cfg.Channels)
	s.render(out, frames)

	return out
}

// stereoDevices is the standard test rig: two stereo inputs, one four
// channel input, two stereo outputs.
func stereoDevices() []Device {
	return []Device{
		{UID: "IN1", Name: "Test Input 1", InputChannels: 2, MinSampleRate: 44100, MaxSampleRate: 96000, DefaultInput: true},
		{UID: "IN2", Name: "Test Input 2", InputChannels: 2, MinSampleRate: 44100, MaxSampleRate: 96000},
		{UID: "IN4", Name: "Test Input 4ch", InputChannels: 4, MinSampleRate: 44100, MaxSampleRate: 96000},
		{UID: "OUT1", Name: "Test Output 1", OutputChannels: 2, MinSampleRate: 44100, MaxSampleRate: 96000, DefaultOutput: true},
		{UID: "OUT2", Name: "Test Output 2", OutputChannels: 2, MinSampleRate: 44100, MaxSampleRate: 96000},
	}
}

// interleaveStereo builds an interleaved stereo buffer from two mono ramps.
func interleaveStereo(left, right []float32) []float32 {
	out := make([]float32, len(left)*2)

	for i := range left {
		out[i*2] = left[i]
		out[i*2+1] = right[i]
	}

	return out
}

// ramp generates frames samples of a deterministic, recognizable signal.
func ramp(start float32, frames int) []float32 {
	out := make([]float32, frames)

	for i := range out {
		out[i] = start + float32(i)*0.001
	}

	return out
}
