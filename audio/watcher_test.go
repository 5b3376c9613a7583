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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvent(t *testing.T, events <-chan DeviceEvent) DeviceEvent {
	t.Helper()

	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for device event")
		return DeviceEvent{}
	}
}

func TestWatcherEmitsConnectAndDisconnect(t *testing.T) {
	host := newFakeHost(stereoDevices()...)
	watcher := NewWatcher(host, 5*time.Millisecond)

	watcher.Start()
	defer watcher.Stop()

	// initial snapshot is seeded, not emitted
	select {
	case ev := <-watcher.Events():
		t.Fatalf("unexpected event for pre-existing device: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	devices := append(stereoDevices(), Device{UID: "USB1", Name: "Hotplug Mic", InputChannels: 1})
	host.setDevices(devices...)

	ev := collectEvent(t, watcher.Events())
	assert.Equal(t, DeviceConnected, ev.Kind)
	assert.Equal(t, "USB1", ev.UID)
	assert.Equal(t, "Hotplug Mic", ev.Name)

	host.setDevices(stereoDevices()...)

	ev = collectEvent(t, watcher.Events())
	assert.Equal(t, DeviceDisconnected, ev.Kind)
	assert.Equal(t, "USB1", ev.UID)
}

func TestWatcherStopClosesEvents(t *testing.T) {
	host := newFakeHost(stereoDevices()...)
	watcher := NewWatcher(host, 5*time.Millisecond)

	watcher.Start()
	watcher.Stop()

	_, open := <-watcher.Events()
	require.False(t, open, "events channel closes after Stop")
}

func TestWatcherEmitsEachChangeOnce(t *testing.T) {
	host := newFakeHost()
	watcher := NewWatcher(host, 5*time.Millisecond)

	watcher.Start()
	defer watcher.Stop()

	host.setDevices(Device{UID: "A", Name: "a"}, Device{UID: "B", Name: "b"})

	seen := map[string]int{}
	for i := 0; i < 2; i++ {
		ev := collectEvent(t, watcher.Events())
		assert.Equal(t, DeviceConnected, ev.Kind)
		seen[ev.UID]++
	}

	assert.Equal(t, 1, seen["A"])
	assert.Equal(t, 1, seen["B"])

	// steady state stays quiet
	select {
	case ev := <-watcher.Events():
		t.Fatalf("unexpected event in steady state: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
