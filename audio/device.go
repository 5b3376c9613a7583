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

// Device describes one hardware device as reported by the host audio API.
// UIDs are stable and unique within a single enumeration snapshot.
type Device struct {
	UID  string
	Name string

	InputChannels  int
	OutputChannels int

	MinSampleRate int
	MaxSampleRate int

	DefaultInput  bool
	DefaultOutput bool
}

func (d *Device) SupportsSampleRate(rate int) bool {
	if d.MinSampleRate == 0 && d.MaxSampleRate == 0 {
		// device didn't report a range, let the hardware decide
		return true
	}

	return rate >= d.MinSampleRate && rate <= d.MaxSampleRate
}

func findDevice(devices []Device, uid string) *Device {
	for i := range devices {
		if devices[i].UID == uid {
			return &devices[i]
		}
	}

	return nil
}
