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
	"math"
	"sync/atomic"
)

// binding is one enabled route as seen from the render callback: 0-based
// channel indices, the source ring, and a shared atomic gain cell so
// SetRouteGain lands without rebuilding the index.
type binding struct {
	inUID      string
	inLeft     int
	inRight    int
	outLeft    int
	outRight   int
	gainBits   *atomic.Uint64
	ring       *Ring
	inChannels int
}

// renderIndex is the immutable routes-by-output view consulted by every
// render callback. The control domain builds a fresh one and swaps the
// pointer; callbacks only ever load.
type renderIndex struct {
	byOutput map[string][]*binding
}

type renderWindow struct {
	win  ReadWindow
	ring *Ring
}

// renderScratch is per-unit reusable state so the render path stays
// allocation-free. The window map is cleared, never reallocated.
type renderScratch struct {
	mono    []float32
	windows map[string]renderWindow
}

func newRenderScratch(frames int) *renderScratch {
	return &renderScratch{
		mono:    make([]float32, frames),
		windows: make(map[string]renderWindow),
	}
}

func (s *renderScratch) grow(frames int) {
	if frames > len(s.mono) {
		s.mono = make([]float32, frames)
	}
}

// renderOutput mixes frames for one output device. Runs on that output's
// hardware domain; touches only the index snapshot, the rings and the atomic
// counters.
//
// Order per render: zero the output, open exactly one read window per
// distinct input, mix every enabled route against its input's window, then
// close each window. Left and right of a route always read the same
// (start, frames) pair, so stereo stays coherent while the writer advances.
func (e *Engine) renderOutput(outputUID string, chanBufs [][]float32, frames int, scratch *renderScratch) {
	for c := range chanBufs {
		buf := chanBufs[c][:frames]
		for i := range buf {
			buf[i] = 0
		}
	}

	idx := e.index.Load()
	if idx == nil {
		return
	}

	bindings := idx.byOutput[outputUID]
	if len(bindings) == 0 {
		return
	}

	e.stats.renders.Add(1)
	e.stats.framesRendered.Add(uint64(frames))

	clear(scratch.windows)

	for _, b := range bindings {
		if _, seen := scratch.windows[b.inUID]; seen {
			continue
		}

		w := b.ring.BeginRead(outputUID, frames)

		if w.Underrun {
			e.stats.underruns.Add(1)
		}
		if w.Overrun {
			e.stats.overruns.Add(1)
		}

		scratch.windows[b.inUID] = renderWindow{win: w, ring: b.ring}
	}

	for _, b := range bindings {
		w := scratch.windows[b.inUID].win
		if w.Frames == 0 {
			continue
		}

		gain := float32(math.Float64frombits(b.gainBits.Load()))
		mono := scratch.mono[:w.Frames]

		if b.outLeft < len(chanBufs) && b.inLeft < b.inChannels {
			b.ring.ReadChannel(w.Start, w.Frames, b.inLeft, mono)

			dst := chanBufs[b.outLeft]
			for i, sample := range mono {
				dst[i] += gain * sample
			}
		}

		if b.outRight < len(chanBufs) && b.inRight < b.inChannels {
			b.ring.ReadChannel(w.Start, w.Frames, b.inRight, mono)

			dst := chanBufs[b.outRight]
			for i, sample := range mono {
				dst[i] += gain * sample
			}
		}
	}

	for _, rw := range scratch.windows {
		rw.ring.EndRead(outputUID, rw.win.Frames)
	}
}
