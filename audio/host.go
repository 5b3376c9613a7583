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

// StreamConfig describes the format a tap or unit wants from the hardware.
// Streams are always 32-bit float; the host hands the callbacks interleaved
// sample slices and the tap/unit do their own (de)interleaving.
type StreamConfig struct {
	DeviceUID    string
	Channels     int
	SampleRate   int
	BufferFrames int
}

// InputFunc is invoked on the input hardware domain with captured interleaved
// samples. It must not block and must not allocate on the steady-state path.
type InputFunc func(samples []float32, frames int)

// RenderFunc is invoked on the output hardware domain; it must fill the
// interleaved sample slice for the requested frame count. Same rules: no
// blocking, no steady-state allocation.
type RenderFunc func(samples []float32, frames int)

// Stream is one open hardware stream. Stop is synchronous: once it returns,
// no further callback for this stream will run.
type Stream interface {
	Start() error
	Stop() error
}

// Host is the contract the engine requires from the host audio API: device
// enumeration, nominal format negotiation, and pull/push float32 streams.
// The production implementation sits on miniaudio (see MalgoHost); tests
// drive a synchronous fake.
type Host interface {
	Devices() ([]Device, error)
	DefaultDevices() (inputUID string, outputUID string, err error)

	SetNominalSampleRate(uid string, rate int) (actual int, err error)
	SetBufferFrames(uid string, frames int) (actual int, err error)

	OpenInputStream(cfg StreamConfig, fn InputFunc) (Stream, error)
	OpenOutputStream(cfg StreamConfig, fn RenderFunc) (Stream, error)

	Close() error
}
