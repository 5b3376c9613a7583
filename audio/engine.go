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
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultSampleRate is the only rate the engine currently negotiates; every
// device in a session is locked to it so no resampling is ever needed.
const DefaultSampleRate = 48000

// DefaultBufferFrames is used when a session doesn't ask for a specific
// buffer size. 64, 128, 256 and 512 are the expected values; anything else
// is passed through and the hardware may coerce it.
const DefaultBufferFrames = 256

// Route is the boundary record for one directed edge from an input channel
// pair to an output channel pair. Channel indices are 1-based here and
// converted to 0-based internally.
type Route struct {
	ID           string
	InDeviceUID  string
	OutDeviceUID string
	InLeft       int
	InRight      int
	OutLeft      int
	OutRight     int
	Gain         float64
	Enabled      bool
}

type RouteState int

const (
	RouteEnabled RouteState = iota
	RouteDisabledByUser
	RouteDisabledByDevice
)

func (s RouteState) String() string {
	switch s {
	case RouteEnabled:
		return "enabled"
	case RouteDisabledByUser:
		return "disabled"
	case RouteDisabledByDevice:
		return "disabled_by_device"
	}
	return "unknown"
}

// RouteStatus is a route plus its current lifecycle state, for callers that
// round-trip the session document.
type RouteStatus struct {
	Route
	State RouteState
}

// SessionInfo reports the negotiated session format.
type SessionInfo struct {
	ID              string
	OutputDeviceUID string
	SampleRate      int
	BufferFrames    int
}

type DeviceEventKind int

const (
	DeviceConnected DeviceEventKind = iota
	DeviceDisconnected
)

func (k DeviceEventKind) String() string {
	if k == DeviceConnected {
		return "connected"
	}
	return "disconnected"
}

// DeviceEvent is one hot-plug observation from the watcher.
type DeviceEvent struct {
	Kind DeviceEventKind
	UID  string
	Name string
}

type routeEntry struct {
	def      Route
	state    RouteState
	gainBits *atomic.Uint64
}

// Engine owns the route table, the tap and unit maps and the render index.
// Every table lives behind one short-held mutex on the control domain; the
// render callbacks consult only the atomically swapped index snapshot.
type Engine struct {
	host Host

	mu        sync.Mutex
	session   *SessionInfo
	routes    map[string]*routeEntry
	taps      map[string]*InputTap
	units     map[string]*OutputUnit
	recorders map[string]*Recorder
	listeners []func(DeviceEvent)

	index atomic.Pointer[renderIndex]
	stats sessionStats
}

func NewEngine(host Host) *Engine {
	e := &Engine{
		host:      host,
		routes:    make(map[string]*routeEntry),
		taps:      make(map[string]*InputTap),
		units:     make(map[string]*OutputUnit),
		recorders: make(map[string]*Recorder),
	}

	e.index.Store(&renderIndex{byOutput: make(map[string][]*binding)})

	return e
}

// Devices lists the host's current device snapshot.
func (e *Engine) Devices() ([]Device, error) {
	return e.host.Devices()
}

// DefaultDevices reports the host's default input and output UIDs.
func (e *Engine) DefaultDevices() (string, string, error) {
	return e.host.DefaultDevices()
}

// Start begins a session on the given output device, stopping any session
// already running. It validates the device and negotiates the nominal format
// through the host, reporting back what the hardware actually accepted.
func (e *Engine) Start(outputUID string, sampleRate, bufferFrames int) (SessionInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		e.stopLocked()
	}

	if outputUID == "" {
		return SessionInfo{}, newError(ErrInvalidArgs, "output device UID is required")
	}

	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}
	if bufferFrames == 0 {
		bufferFrames = DefaultBufferFrames
	}
	if bufferFrames < 0 {
		return SessionInfo{}, newError(ErrInvalidArgs, "invalid buffer size: %d frames", bufferFrames)
	}

	if sampleRate != DefaultSampleRate {
		return SessionInfo{}, newError(ErrSampleRateNotSupported,
			"engine is locked to %d Hz, got %d Hz", DefaultSampleRate, sampleRate)
	}

	devices, err := e.host.Devices()
	if err != nil {
		return SessionInfo{}, wrapError(ErrDeviceNotFound, err, "failed to enumerate devices")
	}

	dev := findDevice(devices, outputUID)
	if dev == nil {
		return SessionInfo{}, newError(ErrDeviceNotFound, "output device not found: %s", outputUID)
	}

	if dev.OutputChannels == 0 {
		return SessionInfo{}, newError(ErrInvalidDeviceChannels,
			"device %s has no output channels", outputUID)
	}

	if !dev.SupportsSampleRate(sampleRate) {
		return SessionInfo{}, newError(ErrSampleRateNotSupported,
			"device %s does not support %d Hz", outputUID, sampleRate)
	}

	actualRate, err := e.host.SetNominalSampleRate(outputUID, sampleRate)
	if err != nil {
		return SessionInfo{}, wrapError(ErrSampleRateSetFailed, err,
			"failed to set sample rate on %s", outputUID)
	}

	actualFrames, err := e.host.SetBufferFrames(outputUID, bufferFrames)
	if err != nil {
		return SessionInfo{}, wrapError(ErrBufferSetFailed, err,
			"failed to set buffer size on %s", outputUID)
	}

	e.session = &SessionInfo{
		ID:              uuid.NewString(),
		OutputDeviceUID: outputUID,
		SampleRate:      actualRate,
		BufferFrames:    actualFrames,
	}

	e.stats.reset()

	slog.Info("session started",
		"session", e.session.ID,
		"output", outputUID,
		"rate", actualRate,
		"frames", actualFrames)

	return *e.session, nil
}

// Stop tears the session down: running captures are finalized, then output
// units (no further renders), then input taps, then the route table and index.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.session == nil {
		return
	}

	for uid, rec := range e.recorders {
		rec.stop()
		delete(e.recorders, uid)
	}

	for uid, unit := range e.units {
		unit.Stop()
		delete(e.units, uid)
	}

	for uid, tap := range e.taps {
		tap.Stop()
		delete(e.taps, uid)
	}

	e.routes = make(map[string]*routeEntry)
	e.index.Store(&renderIndex{byOutput: make(map[string][]*binding)})

	slog.Info("session stopped", "session", e.session.ID)
	e.session = nil
}

// Session reports the active session, if any.
func (e *Engine) Session() (SessionInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return SessionInfo{}, false
	}

	return *e.session, true
}

// AddRoute validates the route against the current device snapshot, spins up
// the input tap and output unit it needs, and installs it in the table. The
// output is registered as a ring reader before its unit ever renders.
func (e *Engine) AddRoute(r Route) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return newError(ErrNoSession, "no active session")
	}

	if r.ID == "" || r.InDeviceUID == "" || r.OutDeviceUID == "" {
		return newError(ErrInvalidArgs, "route id and device UIDs are required")
	}

	if r.InLeft < 1 || r.InRight < 1 || r.OutLeft < 1 || r.OutRight < 1 {
		return newError(ErrInvalidArgs, "channel indices are 1-based and must be positive")
	}

	if r.Gain < 0 {
		return newError(ErrInvalidArgs, "gain must not be negative")
	}

	devices, err := e.host.Devices()
	if err != nil {
		return wrapError(ErrDeviceNotFound, err, "failed to enumerate devices")
	}

	inDev := findDevice(devices, r.InDeviceUID)
	if inDev == nil {
		return newError(ErrDeviceNotFound, "input device not found: %s", r.InDeviceUID)
	}

	outDev := findDevice(devices, r.OutDeviceUID)
	if outDev == nil {
		return newError(ErrDeviceNotFound, "output device not found: %s", r.OutDeviceUID)
	}

	if inDev.InputChannels == 0 {
		return newError(ErrInvalidDeviceChannels, "device %s has no input channels", r.InDeviceUID)
	}
	if outDev.OutputChannels == 0 {
		return newError(ErrInvalidDeviceChannels, "device %s has no output channels", r.OutDeviceUID)
	}

	rate := e.session.SampleRate

	if !inDev.SupportsSampleRate(rate) {
		return newError(ErrSampleRateNotSupported, "device %s does not support %d Hz", r.InDeviceUID, rate)
	}
	if !outDev.SupportsSampleRate(rate) {
		return newError(ErrSampleRateNotSupported, "device %s does not support %d Hz", r.OutDeviceUID, rate)
	}

	if r.InLeft > inDev.InputChannels || r.InRight > inDev.InputChannels {
		return newError(ErrInvalidInputChannel,
			"input channel out of range for %s (%d channels)", r.InDeviceUID, inDev.InputChannels)
	}

	if r.OutLeft > outDev.OutputChannels || r.OutRight > outDev.OutputChannels {
		return newError(ErrInvalidOutputChannel,
			"output channel out of range for %s (%d channels)", r.OutDeviceUID, outDev.OutputChannels)
	}

	for _, uid := range []string{r.InDeviceUID, r.OutDeviceUID} {
		if _, err := e.host.SetNominalSampleRate(uid, rate); err != nil {
			return wrapError(ErrSampleRateSetFailed, err, "failed to set sample rate on %s", uid)
		}

		if _, err := e.host.SetBufferFrames(uid, e.session.BufferFrames); err != nil {
			return wrapError(ErrBufferSetFailed, err, "failed to set buffer size on %s", uid)
		}
	}

	tap, tapCreated := e.taps[r.InDeviceUID], false
	if tap == nil {
		tap = newInputTap(e.host, inDev, rate, e.session.BufferFrames)

		if err := tap.Start(); err != nil {
			return wrapError(ErrInputStartFailed, err, "failed to start input on %s", r.InDeviceUID)
		}

		e.taps[r.InDeviceUID] = tap
		tapCreated = true

		slog.Info("input tap started", "device", r.InDeviceUID, "channels", inDev.InputChannels)
	}

	// reader registration must land before the unit's first render
	tap.Ring().RegisterReader(r.OutDeviceUID)

	unit := e.units[r.OutDeviceUID]
	if unit == nil {
		unit = newOutputUnit(e, outDev, rate, e.session.BufferFrames)

		if err := unit.Start(); err != nil {
			if tapCreated {
				tap.Stop()
				delete(e.taps, r.InDeviceUID)
			} else {
				tap.Ring().UnregisterReader(r.OutDeviceUID)
			}

			return wrapError(ErrOutputStartFailed, err, "failed to start output on %s", r.OutDeviceUID)
		}

		e.units[r.OutDeviceUID] = unit

		slog.Info("output unit started", "device", r.OutDeviceUID, "channels", outDev.OutputChannels)
	}

	state := RouteEnabled
	if !r.Enabled {
		state = RouteDisabledByUser
	}

	gainBits := &atomic.Uint64{}
	gainBits.Store(math.Float64bits(r.Gain))

	e.routes[r.ID] = &routeEntry{
		def:      r,
		state:    state,
		gainBits: gainBits,
	}

	e.rebuildIndexLocked()
	e.cleanupResourcesLocked()

	slog.Info("route added", "route", r.ID,
		"in", r.InDeviceUID, "out", r.OutDeviceUID, "gain", r.Gain, "enabled", r.Enabled)

	return nil
}

// RemoveRoute deletes a route and disposes whatever taps and units nothing
// references anymore.
func (e *Engine) RemoveRoute(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return newError(ErrNoSession, "no active session")
	}

	if _, ok := e.routes[id]; !ok {
		return newError(ErrInvalidArgs, "unknown route: %s", id)
	}

	delete(e.routes, id)

	e.rebuildIndexLocked()
	e.cleanupResourcesLocked()

	slog.Info("route removed", "route", id)

	return nil
}

// SetRouteEnabled flips a route between enabled and user-disabled. Hardware
// streams stay up either way.
func (e *Engine) SetRouteEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return newError(ErrNoSession, "no active session")
	}

	entry, ok := e.routes[id]
	if !ok {
		return newError(ErrInvalidArgs, "unknown route: %s", id)
	}

	if enabled {
		entry.state = RouteEnabled
	} else {
		entry.state = RouteDisabledByUser
	}

	e.rebuildIndexLocked()

	return nil
}

// SetRouteGain updates the gain; the render callback observes the new value
// atomically, without an index rebuild.
func (e *Engine) SetRouteGain(id string, gain float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return newError(ErrNoSession, "no active session")
	}

	entry, ok := e.routes[id]
	if !ok {
		return newError(ErrInvalidArgs, "unknown route: %s", id)
	}

	if gain < 0 {
		return newError(ErrInvalidArgs, "gain must not be negative")
	}

	entry.def.Gain = gain
	entry.gainBits.Store(math.Float64bits(gain))

	return nil
}

// Routes returns the table with each route's lifecycle state, sorted order
// not guaranteed.
func (e *Engine) Routes() []RouteStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	statuses := make([]RouteStatus, 0, len(e.routes))
	for _, entry := range e.routes {
		statuses = append(statuses, RouteStatus{Route: entry.def, State: entry.state})
	}

	return statuses
}

// Stats snapshots the session counters and resource counts.
func (e *Engine) Stats() StatsSnapshot {
	e.mu.Lock()
	routes := len(e.routes)
	taps := len(e.taps)
	units := len(e.units)
	e.mu.Unlock()

	snapshot := StatsSnapshot{
		Underruns:      e.stats.underruns.Load(),
		Overruns:       e.stats.overruns.Load(),
		Renders:        e.stats.renders.Load(),
		FramesRendered: e.stats.framesRendered.Load(),
		Routes:         routes,
		InputTaps:      taps,
		OutputUnits:    units,
	}

	idx := e.index.Load()
	if idx != nil {
		sum := 0.0
		count := 0

		for outUID, bindings := range idx.byOutput {
			for _, b := range bindings {
				sum += b.ring.FillRatio(outUID)
				count++
			}
		}

		if count > 0 {
			snapshot.BufferFill = sum / float64(count)
		}
	}

	return snapshot
}

// OnDeviceEvent registers a listener invoked (on the control domain) after
// the engine has reconciled each device event.
func (e *Engine) OnDeviceEvent(fn func(DeviceEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners = append(e.listeners, fn)
}

// HandleDeviceEvent reconciles one hot-plug event. Disconnection disables
// the affected routes (marked disabled-by-device, never deleted) and
// disposes the dead tap or unit; connection takes no automatic action, the
// control layer decides whether to re-add routes.
func (e *Engine) HandleDeviceEvent(ev DeviceEvent) {
	e.mu.Lock()

	if ev.Kind == DeviceDisconnected && e.session != nil {
		touched := 0

		for _, entry := range e.routes {
			if entry.def.InDeviceUID != ev.UID && entry.def.OutDeviceUID != ev.UID {
				continue
			}

			if entry.state == RouteEnabled {
				entry.state = RouteDisabledByDevice
			}
			touched++
		}

		if touched > 0 {
			slog.Warn("device disconnected, routes disabled", "device", ev.UID, "routes", touched)
		}

		// swap the index before touching hardware so no render callback
		// still reaches the dying tap
		e.rebuildIndexLocked()

		// dispose only what was keyed on the dead device; resources of the
		// disabled routes' other ends stay up for a quick reconnect
		if unit := e.units[ev.UID]; unit != nil {
			unit.Stop()
			delete(e.units, ev.UID)
			slog.Info("output unit stopped", "device", ev.UID)
		}

		if tap := e.taps[ev.UID]; tap != nil {
			if rec := e.recorders[ev.UID]; rec != nil {
				rec.stop()
				delete(e.recorders, ev.UID)
			}

			tap.Stop()
			delete(e.taps, ev.UID)
			slog.Info("input tap stopped", "device", ev.UID)
		}

		// if the dead device was an output, surviving rings still carry its
		// reader cursor
		for _, tap := range e.taps {
			tap.Ring().UnregisterReader(ev.UID)
		}
	}

	listeners := make([]func(DeviceEvent), len(e.listeners))
	copy(listeners, e.listeners)

	e.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// rebuildIndexLocked builds a fresh routes-by-output view and swaps it in.
// Only enabled routes whose tap is alive make it into the index.
func (e *Engine) rebuildIndexLocked() {
	byOutput := make(map[string][]*binding)

	for _, entry := range e.routes {
		if entry.state != RouteEnabled {
			continue
		}

		tap := e.taps[entry.def.InDeviceUID]
		if tap == nil {
			continue
		}

		b := &binding{
			inUID:      entry.def.InDeviceUID,
			inLeft:     entry.def.InLeft - 1,
			inRight:    entry.def.InRight - 1,
			outLeft:    entry.def.OutLeft - 1,
			outRight:   entry.def.OutRight - 1,
			gainBits:   entry.gainBits,
			ring:       tap.Ring(),
			inChannels: tap.Ring().Channels(),
		}

		byOutput[entry.def.OutDeviceUID] = append(byOutput[entry.def.OutDeviceUID], b)
	}

	e.index.Store(&renderIndex{byOutput: byOutput})
}

// cleanupResourcesLocked stops and disposes any tap or unit no route in the
// table references anymore and prunes stale reader cursors from the
// surviving rings. Disabled routes still hold their resources; only deleting
// the route (or losing its device) releases them.
func (e *Engine) cleanupResourcesLocked() {
	neededIn := make(map[string]bool)
	neededOut := make(map[string]bool)

	for _, entry := range e.routes {
		neededIn[entry.def.InDeviceUID] = true
		neededOut[entry.def.OutDeviceUID] = true
	}

	for uid, unit := range e.units {
		if !neededOut[uid] {
			unit.Stop()
			delete(e.units, uid)
			slog.Info("output unit stopped", "device", uid)
		}
	}

	for uid, tap := range e.taps {
		if !neededIn[uid] {
			if rec := e.recorders[uid]; rec != nil {
				rec.stop()
				delete(e.recorders, uid)
			}

			tap.Stop()
			delete(e.taps, uid)
			slog.Info("input tap stopped", "device", uid)
		}
	}

	keep := make([]string, 0, len(e.units)+len(e.recorders))
	for uid := range e.units {
		keep = append(keep, uid)
	}
	for uid := range e.recorders {
		keep = append(keep, captureReaderID(uid))
	}

	for _, tap := range e.taps {
		tap.Ring().PruneReaders(keep)
	}
}
