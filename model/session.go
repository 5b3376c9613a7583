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
package model

// SessionConfig is the persisted session document (session.yaml): which
// output drives the session, the negotiated format, and the full route list.
// The engine itself never touches this file; the app layer round-trips it.
type SessionConfig struct {
	OutputDeviceUID string        `yaml:"output_device_uid"`
	SampleRate      int           `yaml:"sample_rate"`
	BufferFrames    int           `yaml:"buffer_frames"`
	Routes          []RouteConfig `yaml:"routes"`
}

// RouteConfig is one persisted route. Channel indices are 1-based, the same
// convention the engine accepts at its boundary. Gain and Enabled are
// pointers so an absent key (default 1.0 / true) stays distinguishable from
// an explicit zero or false.
type RouteConfig struct {
	ID               string   `yaml:"id"`
	InDeviceUID      string   `yaml:"in_device_uid"`
	OutDeviceUID     string   `yaml:"out_device_uid"`
	InLeft           int      `yaml:"in_l"`
	InRight          int      `yaml:"in_r"`
	OutLeft          int      `yaml:"out_l"`
	OutRight         int      `yaml:"out_r"`
	Gain             *float64 `yaml:"gain,omitempty"`
	Enabled          *bool    `yaml:"enabled,omitempty"`
	DisabledByDevice bool     `yaml:"disabled_by_device,omitempty"`
}

// GainValue resolves the route's gain, defaulting to unity.
func (rc *RouteConfig) GainValue() float64 {
	if rc.Gain == nil {
		return 1.0
	}

	return *rc.Gain
}

// EnabledValue resolves the route's enabled flag, defaulting to true.
func (rc *RouteConfig) EnabledValue() bool {
	if rc.Enabled == nil {
		return true
	}

	return *rc.Enabled
}

// Equal compares by value, following the Gain and Enabled pointers.
func (rc *RouteConfig) Equal(other *RouteConfig) bool {
	return rc.ID == other.ID &&
		rc.InDeviceUID == other.InDeviceUID &&
		rc.OutDeviceUID == other.OutDeviceUID &&
		rc.InLeft == other.InLeft &&
		rc.InRight == other.InRight &&
		rc.OutLeft == other.OutLeft &&
		rc.OutRight == other.OutRight &&
		rc.GainValue() == other.GainValue() &&
		rc.EnabledValue() == other.EnabledValue() &&
		rc.DisabledByDevice == other.DisabledByDevice
}

// Equal compares the full decoded document field by field. Change detection
// must never go through a lossy digest, so this is deliberately exhaustive.
func (sc *SessionConfig) Equal(other *SessionConfig) bool {
	if other == nil {
		return false
	}

	if sc.OutputDeviceUID != other.OutputDeviceUID ||
		sc.SampleRate != other.SampleRate ||
		sc.BufferFrames != other.BufferFrames ||
		len(sc.Routes) != len(other.Routes) {
		return false
	}

	for i := range sc.Routes {
		if !sc.Routes[i].Equal(&other.Routes[i]) {
			return false
		}
	}

	return true
}
