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

// OutputUnit owns one hardware output stream. Each hardware render callback
// asks the engine to mix this output's frames, then interleaves the channel
// buffers into the hardware buffer. The engine always outlives its units:
// Engine.Stop stops every unit before any input tap is torn down.
type OutputUnit struct {
	uid          string
	channels     int
	sampleRate   int
	bufferFrames int

	host   Host
	engine *Engine
	stream Stream

	chanBufs [][]float32
	scratch  *renderScratch
}

func newOutputUnit(engine *Engine, dev *Device, sampleRate, bufferFrames int) *OutputUnit {
	chanBufs := make([][]float32, dev.OutputChannels)
	for c := range chanBufs {
		chanBufs[c] = make([]float32, bufferFrames)
	}

	return &OutputUnit{
		uid:          dev.UID,
		channels:     dev.OutputChannels,
		sampleRate:   sampleRate,
		bufferFrames: bufferFrames,
		host:         engine.host,
		engine:       engine,
		chanBufs:     chanBufs,
		scratch:      newRenderScratch(bufferFrames),
	}
}

func (u *OutputUnit) Start() error {
	stream, err := u.host.OpenOutputStream(StreamConfig{
		DeviceUID:    u.uid,
		Channels:     u.channels,
		SampleRate:   u.sampleRate,
		BufferFrames: u.bufferFrames,
	}, u.render)
	if err != nil {
		return err
	}

	if err := stream.Start(); err != nil {
		stream.Stop()
		return err
	}

	u.stream = stream

	return nil
}

// Stop disposes the hardware stream; after it returns no further render for
// this unit will call into the engine.
func (u *OutputUnit) Stop() {
	if u.stream != nil {
		u.stream.Stop()
		u.stream = nil
	}
}

func (u *OutputUnit) UID() string {
	return u.uid
}

// render runs on the output hardware domain.
func (u *OutputUnit) render(out []float32, frames int) {
	if frames <= 0 || len(u.chanBufs) == 0 {
		return
	}

	if frames > len(u.chanBufs[0]) {
		for c := range u.chanBufs {
			u.chanBufs[c] = make([]float32, frames)
		}
		u.scratch.grow(frames)
	}

	u.engine.renderOutput(u.uid, u.chanBufs, frames, u.scratch)

	if len(out) < frames*u.channels {
		frames = len(out) / u.channels
	}

	for c := 0; c < u.channels; c++ {
		src := u.chanBufs[c]
		for i := 0; i < frames; i++ {
			out[i*u.channels+c] = src[i]
		}
	}
}
