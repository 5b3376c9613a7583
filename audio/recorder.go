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
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/transforms"
	"github.com/go-audio/wav"
)

// Recorder drains one input tap's ring to a WAV file. It registers as an
// ordinary extra reader on the ring, so capture and routing never contend
// beyond the ring's own short lock, and it runs entirely on its own
// goroutine; nothing here touches a hardware callback.
type Recorder struct {
	uid      string
	readerID string
	ring     *Ring

	channels   int
	sampleRate int
	bitDepth   int

	file    *os.File
	encoder *wav.Encoder

	chanScratch [][]float32
	interleaved []float32

	stopChan chan struct{}
	doneChan chan struct{}
}

const captureDrainInterval = 100 * time.Millisecond

func captureReaderID(uid string) string {
	return "capture:" + uid
}

func newRecorder(ring *Ring, uid, filePath string, sampleRate, bitDepth int) (*Recorder, error) {
	f, err := os.Create(filePath)
	if err != nil {
		return nil, err
	}

	channels := ring.Channels()
	chunk := ring.Capacity()

	chanScratch := make([][]float32, channels)
	for c := range chanScratch {
		chanScratch[c] = make([]float32, chunk)
	}

	return &Recorder{
		uid:         uid,
		readerID:    captureReaderID(uid),
		ring:        ring,
		channels:    channels,
		sampleRate:  sampleRate,
		bitDepth:    bitDepth,
		file:        f,
		encoder:     wav.NewEncoder(f, sampleRate, bitDepth, channels, 1),
		chanScratch: chanScratch,
		interleaved: make([]float32, chunk*channels),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}, nil
}

func (r *Recorder) start() {
	r.ring.RegisterReader(r.readerID)
	go r.run()
}

func (r *Recorder) run() {
	t := time.NewTicker(captureDrainInterval)
	defer t.Stop()

	for {
		select {
		case <-r.stopChan:
			// final drain before closing out the file
			r.drain()
			r.ring.UnregisterReader(r.readerID)

			if err := r.encoder.Close(); err != nil {
				slog.Error("failed to finalize capture file: " + err.Error())
			}
			r.file.Close()

			close(r.doneChan)
			return
		case <-t.C:
			r.drain()
		}
	}
}

func (r *Recorder) drain() {
	w := r.ring.BeginRead(r.readerID, len(r.chanScratch[0]))
	if w.Frames == 0 {
		return
	}

	for c := 0; c < r.channels; c++ {
		r.ring.ReadChannel(w.Start, w.Frames, c, r.chanScratch[c])
	}

	r.ring.EndRead(r.readerID, w.Frames)

	for i := 0; i < w.Frames; i++ {
		for c := 0; c < r.channels; c++ {
			r.interleaved[i*r.channels+c] = r.chanScratch[c][i]
		}
	}

	samples := make([]float32, w.Frames*r.channels)
	copy(samples, r.interleaved[:w.Frames*r.channels])

	fBuf := &goaudio.Float32Buffer{
		Data: samples,
		Format: &goaudio.Format{
			NumChannels: r.channels,
			SampleRate:  r.sampleRate,
		},
	}

	transforms.PCMScaleF32(fBuf, r.bitDepth)

	if err := r.encoder.Write(fBuf.AsIntBuffer()); err != nil {
		slog.Error("failed to write capture samples: " + err.Error())
	}
}

func (r *Recorder) stop() {
	close(r.stopChan)
	<-r.doneChan
}

// StartCapture begins recording one input device's tap to a WAV file. The
// tap must already exist, so captures ride along routes rather than keeping
// hardware open by themselves.
func (e *Engine) StartCapture(inUID, filePath string, bitDepth int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return newError(ErrNoSession, "no active session")
	}

	tap := e.taps[inUID]
	if tap == nil {
		return newError(ErrDeviceNotFound, "no input tap for device %s (add a route first)", inUID)
	}

	if _, exists := e.recorders[inUID]; exists {
		return newError(ErrInvalidArgs, "capture already running for %s", inUID)
	}

	if bitDepth == 0 {
		bitDepth = 24
	}
	if bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return newError(ErrInvalidArgs, "unsupported capture bit depth: %d", bitDepth)
	}

	rec, err := newRecorder(tap.Ring(), inUID, filePath, e.session.SampleRate, bitDepth)
	if err != nil {
		return wrapError(ErrInvalidArgs, err, "failed to create capture file %s", filePath)
	}

	rec.start()
	e.recorders[inUID] = rec

	slog.Info("capture started", "device", inUID, "file", filePath, "bit_depth", bitDepth)

	return nil
}

// StopCapture finishes a running capture and finalizes its file.
func (e *Engine) StopCapture(inUID string) error {
	e.mu.Lock()

	rec := e.recorders[inUID]
	if rec == nil {
		e.mu.Unlock()
		return newError(ErrInvalidArgs, "no capture running for %s", inUID)
	}

	delete(e.recorders, inUID)
	e.mu.Unlock()

	rec.stop()

	slog.Info("capture stopped", "device", inUID)

	return nil
}
