// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package radio

import (
	"encoding/binary"
	"fmt"
)

// ModelHeader identifies a model in lists and on the receiver.
type ModelHeader struct {
	Name    [LenModelName]byte
	ModelID [NumModules]uint8
	Bitmap  [LenBitmapName]byte
}

// TimerData configures one model timer.
type TimerData struct {
	Mode          int8
	Start         uint32
	Value         int32
	CountdownBeep uint8
	MinuteBeep    uint8
	Persistent    uint8
}

// LimitData bounds one output channel.
type LimitData struct {
	Min       int16
	Max       int16
	Offset    int16
	PPMCenter int16
	Revert    uint8
	Symmetric uint8
}

// ModelData is one model configuration stored in MODELS/<filename>.
type ModelData struct {
	Header ModelHeader
	Timers [NumTimers]TimerData

	ThrottleReversed uint8
	ThrottleTrace    uint8
	ExtendedLimits   uint8
	ExtendedTrims    uint8

	Trims  [NumSticks]int16
	Limits [NumChannels]LimitData

	// PPMFrameLength is the extra frame length in 0.5 ms steps.
	PPMFrameLength int8
	PPMDelay       int8
}

// ModelSize is the payload size of ModelData.
var ModelSize = binaryMustSize(&ModelData{})

// ModelDefault returns a fresh model. index numbers the default name and the
// receiver ID; index 0 produces an unnamed model.
func ModelDefault(index int) ModelData {
	var m ModelData
	if index > 0 {
		putCString(m.Header.Name[:], fmt.Sprintf("MODEL%02d", index))
		m.Header.ModelID[0] = uint8(index)
	}
	for i := range m.Limits {
		m.Limits[i] = LimitData{
			Min:       OutputMin,
			Max:       OutputMax,
			PPMCenter: 1500,
		}
	}
	m.Timers[0].CountdownBeep = 1
	return m
}

// Name returns the display name of the model.
func (m *ModelData) Name() string {
	return cstring(m.Header.Name[:])
}

// SetName sets the display name, truncated to LenModelName bytes.
func (m *ModelData) SetName(name string) {
	putCString(m.Header.Name[:], name)
}

// ChannelOutputs returns the resting output of every channel: the offset
// clamped to the channel limits, inverted for reversed channels.
func (m *ModelData) ChannelOutputs() []int16 {
	out := make([]int16, NumChannels)
	for i, l := range m.Limits {
		v := min(max(l.Offset, l.Min), l.Max)
		if l.Revert != 0 {
			v = -v
		}
		out[i] = v
	}
	return out
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *ModelData) MarshalBinary() ([]byte, error) {
	return marshal(m)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. data must be
// exactly ModelSize bytes.
func (m *ModelData) UnmarshalBinary(data []byte) error {
	return unmarshal(data, m)
}

func binaryMustSize(v any) int {
	n := binary.Size(v)
	if n < 0 {
		panic(fmt.Sprintf("radio: %T is not fixed-size", v))
	}
	return n
}
