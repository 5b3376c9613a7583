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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seq writes one channel's worth of distinguishable sample values.
func seq(start, frames int) []float32 {
	out := make([]float32, frames)

	for i := range out {
		out[i] = float32(start + i)
	}

	return out
}

func TestRingReaderRegisteredAtZeroStartsAtZero(t *testing.T) {
	r := NewRing(1, 16, nil)
	r.RegisterReader("out")

	w := r.BeginRead("out", 4)
	assert.Equal(t, int64(0), w.Start)
	assert.Equal(t, 0, w.Frames, "empty ring has nothing to read")
}

func TestRingRegistrationAppliesPreroll(t *testing.T) {
	r := NewRing(1, 16, nil) // preroll defaults to capacity/2 = 8

	r.Write([][]float32{seq(0, 12)}, 12)
	r.RegisterReader("out")

	w := r.BeginRead("out", 4)
	assert.Equal(t, int64(4), w.Start, "reader should sit preroll frames behind the writer")
	assert.Equal(t, 4, w.Frames)
	assert.False(t, w.Underrun)
	assert.False(t, w.Overrun)
}

func TestRingRegistrationIsIdempotent(t *testing.T) {
	r := NewRing(1, 16, &RingOptions{Preroll: 1})
	r.RegisterReader("out")

	r.Write([][]float32{seq(0, 8)}, 8)
	r.RegisterReader("out")

	w := r.BeginRead("out", 8)
	assert.Equal(t, int64(0), w.Start, "re-registration must not move the cursor")
	assert.Equal(t, 8, w.Frames)
}

func TestRingUnprimedReturnsEmptyWindowWithoutUnderrun(t *testing.T) {
	r := NewRing(1, 16, nil) // preroll 8
	r.RegisterReader("out")

	r.Write([][]float32{seq(0, 4)}, 4)
	assert.False(t, r.Primed())

	w := r.BeginRead("out", 4)
	assert.Equal(t, 0, w.Frames)
	assert.False(t, w.Underrun, "an unprimed ring is silent, not underrunning")

	// once primed the pending frames become readable
	r.Write([][]float32{seq(4, 4)}, 4)
	assert.True(t, r.Primed())

	w = r.BeginRead("out", 8)
	assert.Equal(t, 8, w.Frames)
	assert.False(t, w.Underrun)
}

func TestRingReadBackWithWrap(t *testing.T) {
	r := NewRing(2, 8, &RingOptions{Preroll: 1})
	r.RegisterReader("out")

	left := seq(100, 6)
	right := seq(200, 6)

	r.Write([][]float32{left, right}, 6)

	w := r.BeginRead("out", 6)
	require.Equal(t, 6, w.Frames)

	dest := make([]float32, 6)
	r.ReadChannel(w.Start, w.Frames, 0, dest)
	assert.Equal(t, left, dest)

	r.ReadChannel(w.Start, w.Frames, 1, dest)
	assert.Equal(t, right, dest)

	r.EndRead("out", w.Frames)

	// second write wraps around the end of the 8 frame buffer
	left2 := seq(300, 5)
	right2 := seq(400, 5)
	r.Write([][]float32{left2, right2}, 5)

	w = r.BeginRead("out", 5)
	require.Equal(t, 5, w.Frames)

	dest = make([]float32, 5)
	r.ReadChannel(w.Start, w.Frames, 0, dest)
	assert.Equal(t, left2, dest)

	r.ReadChannel(w.Start, w.Frames, 1, dest)
	assert.Equal(t, right2, dest)

	r.EndRead("out", w.Frames)
}

func TestRingOversizeWriteKeepsTailAndFullTimeline(t *testing.T) {
	const capacity = 8

	r := NewRing(1, capacity, &RingOptions{Preroll: 1})
	r.RegisterReader("out")

	// K+1 frames in one call: first frame dropped, cursor advances by K+1
	samples := seq(1, capacity+1)
	r.Write([][]float32{samples}, capacity+1)

	w := r.BeginRead("out", capacity+1)
	assert.True(t, w.Overrun, "reader at 0 was lapped by the oversize write")
	assert.Equal(t, int64(1), w.Start)
	assert.Equal(t, capacity, w.Frames)

	dest := make([]float32, capacity)
	r.ReadChannel(w.Start, w.Frames, 0, dest)
	assert.Equal(t, samples[1:], dest, "ring should hold the caller's last K frames")

	r.EndRead("out", w.Frames)

	w = r.BeginRead("out", 1)
	assert.Equal(t, 0, w.Frames, "cursor advanced by the full K+1 timeline")
}

func TestRingOverrunJumpsReaderForward(t *testing.T) {
	r := NewRing(1, 8, &RingOptions{Preroll: 1})
	r.RegisterReader("out")

	r.Write([][]float32{seq(0, 8)}, 8)
	r.Write([][]float32{seq(8, 4)}, 4) // laps the reader by 4

	w := r.BeginRead("out", 8)
	assert.True(t, w.Overrun)
	assert.Equal(t, int64(4), w.Start, "cursor jumps to write - capacity")
	assert.Equal(t, 8, w.Frames)

	dest := make([]float32, 8)
	r.ReadChannel(w.Start, w.Frames, 0, dest)
	assert.Equal(t, seq(4, 8), dest, "oldest frames were dropped")
}

func TestRingUnderrunReportsShortWindow(t *testing.T) {
	r := NewRing(1, 16, &RingOptions{Preroll: 1})
	r.RegisterReader("out")

	r.Write([][]float32{seq(0, 3)}, 3)

	w := r.BeginRead("out", 8)
	assert.True(t, w.Underrun)
	assert.Equal(t, 3, w.Frames)
}

func TestRingCursorInvariantHolds(t *testing.T) {
	r := NewRing(1, 8, &RingOptions{Preroll: 1})
	r.RegisterReader("a")
	r.RegisterReader("b")

	lag := func(id string) float64 { return r.FillRatio(id) }

	for i := 0; i < 50; i++ {
		r.Write([][]float32{seq(i*3, 3)}, 3)

		w := r.BeginRead("a", 2)
		r.EndRead("a", w.Frames)

		// reader b never reads and must still satisfy 0 <= lag <= 1
		assert.GreaterOrEqual(t, lag("a"), 0.0)
		assert.LessOrEqual(t, lag("a"), 1.0)
		assert.GreaterOrEqual(t, lag("b"), 0.0)
		assert.LessOrEqual(t, lag("b"), 1.0)
	}
}

func TestRingFillRatio(t *testing.T) {
	r := NewRing(1, 8, &RingOptions{Preroll: 1})
	r.RegisterReader("out")

	assert.Equal(t, 0.0, r.FillRatio("out"))

	r.Write([][]float32{seq(0, 4)}, 4)
	assert.InDelta(t, 0.5, r.FillRatio("out"), 1e-9)

	w := r.BeginRead("out", 2)
	r.EndRead("out", w.Frames)
	assert.InDelta(t, 0.25, r.FillRatio("out"), 1e-9)
}

func TestRingPruneReaders(t *testing.T) {
	r := NewRing(1, 8, &RingOptions{Preroll: 1})
	r.RegisterReader("keep")
	r.RegisterReader("drop")

	r.Write([][]float32{seq(0, 4)}, 4)
	r.PruneReaders([]string{"keep"})

	w := r.BeginRead("drop", 4)
	assert.Equal(t, 0, w.Frames, "pruned reader no longer resolves")

	w = r.BeginRead("keep", 4)
	assert.Equal(t, 4, w.Frames)
}

func TestRingIndependentReaderCursors(t *testing.T) {
	r := NewRing(1, 16, &RingOptions{Preroll: 1})
	r.RegisterReader("fast")
	r.RegisterReader("slow")

	r.Write([][]float32{seq(0, 8)}, 8)

	w := r.BeginRead("fast", 8)
	r.EndRead("fast", w.Frames)

	wSlow := r.BeginRead("slow", 4)
	assert.Equal(t, int64(0), wSlow.Start, "slow reader is unaffected by the fast one")
	assert.Equal(t, 4, wSlow.Frames)
}
