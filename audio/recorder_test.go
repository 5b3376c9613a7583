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
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureRequiresSessionAndTap(t *testing.T) {
	host := newFakeHost(stereoDevices()...)
	engine := NewEngine(host)

	err := engine.StartCapture("IN1", "unused.wav", 16)
	assert.Equal(t, ErrNoSession, KindOf(err))

	_, err = engine.Start("OUT1", DefaultSampleRate, testBufferFrames)
	require.NoError(t, err)

	err = engine.StartCapture("IN1", "unused.wav", 16)
	assert.Equal(t, ErrDeviceNotFound, KindOf(err), "capture needs an existing tap")
}

func TestCaptureWritesDecodableWav(t *testing.T) {
	engine, host := startedEngine(t)
	require.NoError(t, engine.AddRoute(stereoRoute("R1")))

	filePath := filepath.Join(t.TempDir(), "take.wav")
	require.NoError(t, engine.StartCapture("IN1", filePath, 16))

	err := engine.StartCapture("IN1", filePath, 16)
	assert.Equal(t, ErrInvalidArgs, KindOf(err), "double capture on one tap is rejected")

	signal := ramp(0.25, primeFrames)
	host.pushInput("IN1", interleaveStereo(signal, signal), primeFrames)

	// StopCapture performs a final drain before finalizing the file
	require.NoError(t, engine.StopCapture("IN1"))

	f, err := os.Open(filePath)
	require.NoError(t, err)
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, 2, buf.Format.NumChannels)
	assert.Equal(t, DefaultSampleRate, buf.Format.SampleRate)
	assert.Equal(t, primeFrames*2, len(buf.Data), "every captured frame lands in the file")

	nonZero := 0
	for _, sample := range buf.Data {
		if sample != 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, 0, "capture is not silence")
}

func TestStopCaptureWithoutCapture(t *testing.T) {
	engine, _ := startedEngine(t)

	assert.Equal(t, ErrInvalidArgs, KindOf(engine.StopCapture("IN1")))
}

func TestStopSessionStopsCapture(t *testing.T) {
	engine, host := startedEngine(t)
	require.NoError(t, engine.AddRoute(stereoRoute("R1")))

	filePath := filepath.Join(t.TempDir(), "take.wav")
	require.NoError(t, engine.StartCapture("IN1", filePath, 24))

	host.pushInput("IN1", interleaveStereo(ramp(0.1, primeFrames), ramp(0.1, primeFrames)), primeFrames)

	engine.Stop()

	// the file was finalized during teardown and must parse
	f, err := os.Open(filePath)
	require.NoError(t, err)
	defer f.Close()

	decoder := wav.NewDecoder(f)
	assert.True(t, decoder.IsValidFile())

	assert.Equal(t, ErrInvalidArgs, KindOf(engine.StopCapture("IN1")), "capture is gone after session stop")
}
