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
	"time"
)

// DeviceLister is the slice of Host the watcher needs.
type DeviceLister interface {
	Devices() ([]Device, error)
}

// Watcher polls the host device list on its own goroutine and emits one
// event per observed change. miniaudio has no change notification, so
// polling it is; the engine treats events idempotently, which makes the
// occasional re-emission after an enumeration hiccup harmless.
type Watcher struct {
	lister   DeviceLister
	interval time.Duration

	events chan DeviceEvent
	stop   chan struct{}
	done   chan struct{}

	known map[string]string
}

const defaultWatchInterval = 1 * time.Second

func NewWatcher(lister DeviceLister, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = defaultWatchInterval
	}

	return &Watcher{
		lister:   lister,
		interval: interval,
		events:   make(chan DeviceEvent, 16),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		known:    make(map[string]string),
	}
}

// Events is the watcher's outbound stream. It closes after Stop.
func (w *Watcher) Events() <-chan DeviceEvent {
	return w.events
}

// Start seeds the known set from the current device list (without emitting)
// and begins polling.
func (w *Watcher) Start() {
	if devices, err := w.lister.Devices(); err == nil {
		for i := range devices {
			w.known[devices[i].UID] = devices[i].Name
		}
	}

	go w.run()
}

// Stop halts polling and waits for the poll goroutine to exit; the events
// channel closes once drained of nothing further.
func (w *Watcher) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Watcher) run() {
	defer close(w.done)
	defer close(w.events)

	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-t.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	devices, err := w.lister.Devices()
	if err != nil {
		slog.Debug("device enumeration failed, keeping previous snapshot: " + err.Error())
		return
	}

	current := make(map[string]string, len(devices))
	for i := range devices {
		current[devices[i].UID] = devices[i].Name
	}

	for uid, name := range current {
		if _, ok := w.known[uid]; !ok {
			if !w.emit(DeviceEvent{Kind: DeviceConnected, UID: uid, Name: name}) {
				return
			}
		}
	}

	for uid, name := range w.known {
		if _, ok := current[uid]; !ok {
			if !w.emit(DeviceEvent{Kind: DeviceDisconnected, UID: uid, Name: name}) {
				return
			}
		}
	}

	w.known = current
}

// emit delivers one event, blocking until the consumer takes it so delivery
// is at-least-once per actual change. Returns false when stopping.
func (w *Watcher) emit(ev DeviceEvent) bool {
	select {
	case w.events <- ev:
		return true
	case <-w.stop:
		return false
	}
}
