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
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// MalgoHost implements Host on top of miniaudio. One malgo context is shared
// by every stream and by device enumeration.
type MalgoHost struct {
	ctx *malgo.AllocatedContext

	mu  sync.Mutex
	ids map[string]*malgo.DeviceID // uid -> device id from the last enumeration
}

func NewMalgoHost() (*MalgoHost, error) {
	// pin the native backend per OS, auto-select anywhere else
	var backends []malgo.Backend

	switch runtime.GOOS {
	case "linux":
		backends = []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		backends = []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		backends = []malgo.Backend{malgo.BackendCoreaudio}
	}

	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, func(message string) {
		slog.Debug("miniaudio: " + strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize host audio context: %w", err)
	}

	return &MalgoHost{
		ctx: ctx,
		ids: make(map[string]*malgo.DeviceID),
	}, nil
}

func (h *MalgoHost) Devices() ([]Device, error) {
	byUID := make(map[string]*Device)
	order := make([]string, 0)

	ids := make(map[string]*malgo.DeviceID)

	for _, kind := range []malgo.DeviceType{malgo.Capture, malgo.Playback} {
		infos, err := h.ctx.Devices(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate devices: %w", err)
		}

		for i := range infos {
			info := infos[i]
			uid := deviceUID(info.ID)

			full, err := h.ctx.DeviceInfo(kind, info.ID, malgo.Shared)
			if err != nil {
				slog.Debug("skipping device without detail info: " + uid)
				continue
			}

			dev, exists := byUID[uid]
			if !exists {
				dev = &Device{
					UID:  uid,
					Name: info.Name(),
				}
				byUID[uid] = dev
				order = append(order, uid)

				idCopy := info.ID
				ids[uid] = &idCopy
			}

			if dev.MinSampleRate == 0 || int(full.MinSampleRate) < dev.MinSampleRate {
				dev.MinSampleRate = int(full.MinSampleRate)
			}
			if int(full.MaxSampleRate) > dev.MaxSampleRate {
				dev.MaxSampleRate = int(full.MaxSampleRate)
			}

			if kind == malgo.Capture {
				dev.InputChannels = int(full.MaxChannels)
				dev.DefaultInput = full.IsDefault == 1
			} else {
				dev.OutputChannels = int(full.MaxChannels)
				dev.DefaultOutput = full.IsDefault == 1
			}
		}
	}

	h.mu.Lock()
	h.ids = ids
	h.mu.Unlock()

	devices := make([]Device, 0, len(order))
	for _, uid := range order {
		devices = append(devices, *byUID[uid])
	}

	return devices, nil
}

func (h *MalgoHost) DefaultDevices() (string, string, error) {
	devices, err := h.Devices()
	if err != nil {
		return "", "", err
	}

	inputUID := ""
	outputUID := ""

	for i := range devices {
		if devices[i].DefaultInput && inputUID == "" {
			inputUID = devices[i].UID
		}
		if devices[i].DefaultOutput && outputUID == "" {
			outputUID = devices[i].UID
		}
	}

	return inputUID, outputUID, nil
}

// SetNominalSampleRate validates the requested rate against the device's
// reported range. miniaudio applies the nominal format when the stream is
// opened, so on success the requested rate is the negotiated rate.
func (h *MalgoHost) SetNominalSampleRate(uid string, rate int) (int, error) {
	devices, err := h.Devices()
	if err != nil {
		return 0, err
	}

	dev := findDevice(devices, uid)
	if dev == nil {
		return 0, fmt.Errorf("device not found: %s", uid)
	}

	if !dev.SupportsSampleRate(rate) {
		return 0, fmt.Errorf("device %s does not support %d Hz (supported range %d-%d)",
			uid, rate, dev.MinSampleRate, dev.MaxSampleRate)
	}

	return rate, nil
}

// SetBufferFrames records the requested period size; miniaudio applies it at
// stream open and may coerce to what the hardware accepts.
func (h *MalgoHost) SetBufferFrames(uid string, frames int) (int, error) {
	devices, err := h.Devices()
	if err != nil {
		return 0, err
	}

	if findDevice(devices, uid) == nil {
		return 0, fmt.Errorf("device not found: %s", uid)
	}

	if frames <= 0 {
		return 0, fmt.Errorf("invalid buffer size: %d frames", frames)
	}

	return frames, nil
}

func (h *MalgoHost) OpenInputStream(cfg StreamConfig, fn InputFunc) (Stream, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.BufferFrames)
	deviceConfig.Alsa.NoMMap = 1

	if id := h.deviceID(cfg.DeviceUID); id != nil {
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			fn(bytesToFloat32(pInput), int(frameCount))
		},
	}

	device, err := malgo.InitDevice(h.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream on %s: %w", cfg.DeviceUID, err)
	}

	return &malgoStream{device: device}, nil
}

func (h *MalgoHost) OpenOutputStream(cfg StreamConfig, fn RenderFunc) (Stream, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.BufferFrames)
	deviceConfig.Alsa.NoMMap = 1

	if id := h.deviceID(cfg.DeviceUID); id != nil {
		deviceConfig.Playback.DeviceID = id.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			fn(bytesToFloat32(pOutput), int(frameCount))
		},
	}

	device, err := malgo.InitDevice(h.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to open output stream on %s: %w", cfg.DeviceUID, err)
	}

	return &malgoStream{device: device}, nil
}

func (h *MalgoHost) Close() error {
	if h.ctx == nil {
		return nil
	}

	err := h.ctx.Uninit()
	h.ctx.Free()
	h.ctx = nil

	return err
}

func (h *MalgoHost) deviceID(uid string) *malgo.DeviceID {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.ids[uid]
}

type malgoStream struct {
	device *malgo.Device
}

func (s *malgoStream) Start() error {
	return s.device.Start()
}

// Stop halts and disposes the underlying device. malgo's Stop is synchronous,
// so after it returns no further data callback will run.
func (s *malgoStream) Stop() error {
	if s.device == nil {
		return nil
	}

	err := s.device.Stop()
	s.device.Uninit()
	s.device = nil

	return err
}

// deviceUID decodes miniaudio's hex device id into the host's stable string
// UID, trimming the zero padding of fixed-size ids.
func deviceUID(id malgo.DeviceID) string {
	decoded, err := hex.DecodeString(id.String())
	if err != nil {
		return id.String()
	}

	return strings.TrimRight(string(decoded), "\x00")
}

func bytesToFloat32(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}

	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}
