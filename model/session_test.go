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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func testSession() *SessionConfig {
	return &SessionConfig{
		OutputDeviceUID: "BuiltInSpeakerDevice",
		SampleRate:      48000,
		BufferFrames:    256,
		Routes: []RouteConfig{
			{
				ID:           "mic-to-speakers",
				InDeviceUID:  "USBAudioDevice_1",
				OutDeviceUID: "BuiltInSpeakerDevice",
				InLeft:       1,
				InRight:      2,
				OutLeft:      1,
				OutRight:     2,
				Gain:         floatPtr(0.8),
				Enabled:      boolPtr(true),
			},
			{
				ID:               "deck-to-speakers",
				InDeviceUID:      "USBAudioDevice_2",
				OutDeviceUID:     "BuiltInSpeakerDevice",
				InLeft:           3,
				InRight:          4,
				OutLeft:          1,
				OutRight:         2,
				Gain:             floatPtr(0.0),
				Enabled:          boolPtr(false),
				DisabledByDevice: true,
			},
		},
	}
}

func TestSessionConfigRoundTrip(t *testing.T) {
	original := testSession()

	data, err := yaml.Marshal(original)
	require.NoError(t, err)

	decoded := &SessionConfig{}
	require.NoError(t, yaml.Unmarshal(data, decoded))

	assert.True(t, decoded.Equal(original), "every field survives the round trip")
	assert.True(t, decoded.Routes[1].DisabledByDevice)
	assert.Equal(t, 0.0, decoded.Routes[1].GainValue(), "explicit zero gain is preserved")
}

func TestRouteConfigDefaults(t *testing.T) {
	doc := `
id: r1
in_device_uid: IN
out_device_uid: OUT
in_l: 1
in_r: 2
out_l: 1
out_r: 2
`

	rc := &RouteConfig{}
	require.NoError(t, yaml.Unmarshal([]byte(doc), rc))

	assert.Nil(t, rc.Gain)
	assert.Equal(t, 1.0, rc.GainValue(), "absent gain defaults to unity")
	assert.Nil(t, rc.Enabled)
	assert.True(t, rc.EnabledValue(), "absent enabled defaults to true")
	assert.False(t, rc.DisabledByDevice)
}

func TestSessionConfigEqualDetectsChanges(t *testing.T) {
	a := testSession()

	b := testSession()
	assert.True(t, a.Equal(b))

	b.Routes[0].Gain = floatPtr(0.9)
	assert.False(t, a.Equal(b), "gain change must be detected")

	c := testSession()
	c.Routes[1].DisabledByDevice = false
	assert.False(t, a.Equal(c), "involuntary-disable flag participates in equality")

	d := testSession()
	d.BufferFrames = 128
	assert.False(t, a.Equal(d))

	e := testSession()
	e.Routes = e.Routes[:1]
	assert.False(t, a.Equal(e))
}
