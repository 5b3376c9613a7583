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
	"sync"
)

// Ring is a multi-channel circular sample buffer with one writer (the input
// hardware callback) and any number of independent readers (one per output
// rendering from this input, plus optional capture readers).
//
// Cursors are absolute 64-bit frame counts; the storage index is cursor mod
// capacity. The invariant after any operation: 0 <= write - read <= capacity
// for every registered reader. Every method holds the lock for a bounded,
// allocation-free critical section, which keeps it safe to call from
// hardware callbacks.
type Ring struct {
	mu sync.Mutex

	channels int
	capacity int64
	preroll  int64

	data [][]float32

	write   int64
	readers map[string]int64
}

// ReadWindow describes what BeginRead handed out: the absolute start cursor,
// how many frames may be read, and whether this reader under- or overran.
type ReadWindow struct {
	Start    int64
	Frames   int
	Underrun bool
	Overrun  bool
}

// RingOptions tunes construction. Preroll is the initial reader offset in
// frames; too small and the first render underruns, too large and latency
// shows. Zero means half the capacity.
type RingOptions struct {
	Preroll int
}

func NewRing(channels, capacity int, opts *RingOptions) *Ring {
	if channels < 1 {
		channels = 1
	}
	if capacity < 1 {
		capacity = 1
	}

	preroll := capacity / 2
	if opts != nil && opts.Preroll > 0 {
		preroll = opts.Preroll
	}
	if preroll > capacity {
		preroll = capacity
	}

	data := make([][]float32, channels)
	for c := range data {
		data[c] = make([]float32, capacity)
	}

	return &Ring{
		channels: channels,
		capacity: int64(capacity),
		preroll:  int64(preroll),
		data:     data,
		readers:  make(map[string]int64),
	}
}

func (r *Ring) Channels() int {
	return r.channels
}

func (r *Ring) Capacity() int {
	return int(r.capacity)
}

// Primed reports whether the writer has filled at least the preroll amount.
// Readers see zero-frame windows until then, so a freshly created tap stays
// silent instead of underrunning on its first few renders.
func (r *Ring) Primed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.write >= r.preroll
}

// RegisterReader adds a reader positioned preroll frames behind the writer
// (or at zero on a fresh ring). Registering an existing reader is a no-op.
func (r *Ring) RegisterReader(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.readers[id]; exists {
		return
	}

	cursor := r.write - r.preroll
	if cursor < 0 {
		cursor = 0
	}

	r.readers[id] = cursor
}

// UnregisterReader drops a single reader cursor.
func (r *Ring) UnregisterReader(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.readers, id)
}

// PruneReaders drops every reader cursor not present in keep.
func (r *Ring) PruneReaders(keep []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.readers {
		found := false
		for _, k := range keep {
			if k == id {
				found = true
				break
			}
		}

		if !found {
			delete(r.readers, id)
		}
	}
}

// Write copies non-interleaved samples into the ring, one source slice per
// channel, frames samples each. A write larger than the capacity keeps only
// the last capacity frames but still advances the cursor by the full count,
// so readers observe the same timeline the hardware produced.
func (r *Ring) Write(channelBufs [][]float32, frames int) {
	if frames <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(frames)
	kept := n
	skip := int64(0)

	if n > r.capacity {
		skip = n - r.capacity
		kept = r.capacity
	}

	start := (r.write + skip) % r.capacity
	first := kept
	if first > r.capacity-start {
		first = r.capacity - start
	}

	for c := 0; c < r.channels && c < len(channelBufs); c++ {
		src := channelBufs[c]
		copy(r.data[c][start:start+first], src[skip:skip+first])

		if first < kept {
			copy(r.data[c][:kept-first], src[skip+first:skip+kept])
		}
	}

	r.write += n
}

// BeginRead opens a read window for the given reader. If the writer lapped
// this reader, the cursor jumps forward to write-capacity (dropping the
// oldest frames) and Overrun is set. Fewer available frames than requested
// is an underrun. While the ring is not yet primed the window is empty and
// neither flag is raised.
func (r *Ring) BeginRead(id string, frames int) ReadWindow {
	r.mu.Lock()
	defer r.mu.Unlock()

	cursor, ok := r.readers[id]
	if !ok {
		return ReadWindow{}
	}

	w := ReadWindow{Start: cursor}

	if r.write < r.preroll {
		return w
	}

	if r.write-cursor > r.capacity {
		cursor = r.write - r.capacity
		r.readers[id] = cursor
		w.Start = cursor
		w.Overrun = true
	}

	available := r.write - cursor
	if available > int64(frames) {
		available = int64(frames)
	}

	w.Frames = int(available)
	w.Underrun = available < int64(frames)

	return w
}

// ReadChannel copies frames samples of one channel, starting at the absolute
// cursor handed out by BeginRead, into dest. Each channel of the same window
// must use the same (start, frames) pair so stereo pairs stay aligned even
// if the writer advances mid-render.
func (r *Ring) ReadChannel(start int64, frames, channel int, dest []float32) {
	if frames <= 0 || channel < 0 || channel >= r.channels {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := start % r.capacity
	n := int64(frames)

	first := n
	if first > r.capacity-idx {
		first = r.capacity - idx
	}

	copy(dest[:first], r.data[channel][idx:idx+first])

	if first < n {
		copy(dest[first:n], r.data[channel][:n-first])
	}
}

// EndRead advances the reader by the frames actually consumed, which must
// not exceed the window's available count.
func (r *Ring) EndRead(id string, frames int) {
	if frames < 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cursor, ok := r.readers[id]
	if !ok {
		return
	}

	cursor += int64(frames)
	if cursor > r.write {
		cursor = r.write
	}

	r.readers[id] = cursor
}

// FillRatio reports how far the given reader trails the writer, normalized
// to the capacity.
func (r *Ring) FillRatio(id string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	cursor, ok := r.readers[id]
	if !ok {
		return 0
	}

	lag := r.write - cursor
	if lag < 0 {
		lag = 0
	}
	if lag > r.capacity {
		lag = r.capacity
	}

	return float64(lag) / float64(r.capacity)
}
