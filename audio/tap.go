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

// InputTap owns one hardware input stream and pipes every captured buffer
// into its ring. It carries no routing knowledge; the engine decides who
// reads the ring.
type InputTap struct {
	uid          string
	channels     int
	sampleRate   int
	bufferFrames int

	host   Host
	ring   *Ring
	stream Stream

	// deinterleave scratch, one slice per channel, grown once to the
	// largest callback seen so the steady-state path never allocates
	scratch [][]float32
}

const minRingFrames = 1024

func newInputTap(host Host, dev *Device, sampleRate, bufferFrames int) *InputTap {
	capacity := 8 * bufferFrames
	if capacity < minRingFrames {
		capacity = minRingFrames
	}

	scratch := make([][]float32, dev.InputChannels)
	for c := range scratch {
		scratch[c] = make([]float32, bufferFrames)
	}

	return &InputTap{
		uid:          dev.UID,
		channels:     dev.InputChannels,
		sampleRate:   sampleRate,
		bufferFrames: bufferFrames,
		host:         host,
		ring:         NewRing(dev.InputChannels, capacity, nil),
		scratch:      scratch,
	}
}

func (t *InputTap) Start() error {
	stream, err := t.host.OpenInputStream(StreamConfig{
		DeviceUID:    t.uid,
		Channels:     t.channels,
		SampleRate:   t.sampleRate,
		BufferFrames: t.bufferFrames,
	}, t.onFrames)
	if err != nil {
		return err
	}

	if err := stream.Start(); err != nil {
		stream.Stop()
		return err
	}

	t.stream = stream

	return nil
}

// Stop disposes the hardware stream. Once it returns no further ring write
// can happen.
func (t *InputTap) Stop() {
	if t.stream != nil {
		t.stream.Stop()
		t.stream = nil
	}

	t.scratch = nil
}

func (t *InputTap) Ring() *Ring {
	return t.ring
}

func (t *InputTap) UID() string {
	return t.uid
}

// onFrames runs on the input hardware domain: deinterleave into the scratch
// list, hand the scratch to the ring. The only allocation ever taken here is
// a one-time regrow when the hardware delivers a bigger callback than any
// seen before.
func (t *InputTap) onFrames(samples []float32, frames int) {
	if frames <= 0 || len(t.scratch) == 0 {
		return
	}

	if frames > len(t.scratch[0]) {
		for c := range t.scratch {
			t.scratch[c] = make([]float32, frames)
		}
	}

	if len(samples) < frames*t.channels {
		frames = len(samples) / t.channels
		if frames <= 0 {
			return
		}
	}

	for c := 0; c < t.channels; c++ {
		dst := t.scratch[c]
		for i := 0; i < frames; i++ {
			dst[i] = samples[i*t.channels+c]
		}
	}

	t.ring.Write(t.scratch, frames)
}
