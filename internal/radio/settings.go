// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package radio

import (
	"fmt"

	"github.com/tomtom215/radiostore/internal/record"
)

// GeneralSettings is the radio-wide configuration stored in RADIO/radio.bin.
type GeneralSettings struct {
	Version uint8
	Variant uint16

	CalibMid     [NumSticks + NumPots]int16
	CalibSpanNeg [NumSticks + NumPots]int16
	CalibSpanPos [NumSticks + NumPots]int16
	Checksum     uint16

	Contrast             uint8
	VBatWarn             uint8
	TxVoltageCalibration int8
	BacklightMode        int8
	BacklightBright      uint8
	BeepMode             int8
	SpeakerVolume        int8
	InactivityTimer      uint8

	// UnexpectedShutdown is set while running and cleared on a clean
	// shutdown or before a backup.
	UnexpectedShutdown uint8

	TTSLanguage       [2]byte
	CurrModelFilename [LenModelFilename + 1]byte
}

// GeneralSize is the payload size of GeneralSettings.
var GeneralSize = binaryMustSize(&GeneralSettings{})

// GeneralDefault returns factory settings pointing at DefaultModelFilename.
func GeneralDefault() GeneralSettings {
	g := GeneralSettings{
		Version:         record.CurrentVersion,
		Contrast:        25,
		VBatWarn:        90,
		BacklightBright: 100,
		SpeakerVolume:   12,
		InactivityTimer: 10,
		TTSLanguage:     [2]byte{'e', 'n'},
	}
	for i := range g.CalibMid {
		g.CalibMid[i] = 0x200
		g.CalibSpanNeg[i] = 0x180
		g.CalibSpanPos[i] = 0x180
	}
	g.Checksum = g.calibrationChecksum()
	putCString(g.CurrModelFilename[:], DefaultModelFilename)
	return g
}

func (g *GeneralSettings) calibrationChecksum() uint16 {
	var sum uint16
	for i := range g.CalibMid {
		sum += uint16(g.CalibMid[i]) + uint16(g.CalibSpanNeg[i]) + uint16(g.CalibSpanPos[i])
	}
	return sum
}

// CalibrationValid reports whether the stored checksum matches the
// calibration arrays.
func (g *GeneralSettings) CalibrationValid() bool {
	return g.Checksum == g.calibrationChecksum()
}

// ModelFilename returns the filename of the active model.
func (g *GeneralSettings) ModelFilename() string {
	return cstring(g.CurrModelFilename[:])
}

// SetModelFilename selects the active model file.
func (g *GeneralSettings) SetModelFilename(name string) error {
	if name == "" || len(name) > LenModelFilename {
		return fmt.Errorf("radio: model filename %q must be 1-%d bytes", name, LenModelFilename)
	}
	putCString(g.CurrModelFilename[:], name)
	return nil
}

// Language returns the two-letter voice language code.
func (g *GeneralSettings) Language() string {
	return cstring(g.TTSLanguage[:])
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (g *GeneralSettings) MarshalBinary() ([]byte, error) {
	return marshal(g)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. data must be
// exactly GeneralSize bytes.
func (g *GeneralSettings) UnmarshalBinary(data []byte) error {
	return unmarshal(data, g)
}
