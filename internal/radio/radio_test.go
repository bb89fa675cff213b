// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package radio

import (
	"bytes"
	"testing"

	"github.com/tomtom215/radiostore/internal/record"
)

func TestPayloadSizesFitRecord(t *testing.T) {
	if GeneralSize <= 0 || GeneralSize > record.MaxPayload {
		t.Errorf("GeneralSize = %d, want (0, %d]", GeneralSize, record.MaxPayload)
	}
	if ModelSize <= 0 || ModelSize > record.MaxPayload {
		t.Errorf("ModelSize = %d, want (0, %d]", ModelSize, record.MaxPayload)
	}
}

func TestGeneralDefaultDeterministic(t *testing.T) {
	a := GeneralDefault()
	b := GeneralDefault()

	ab, err := a.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	bb, err := b.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	if !bytes.Equal(ab, bb) {
		t.Error("GeneralDefault() is not deterministic")
	}
	if len(ab) != GeneralSize {
		t.Errorf("len(MarshalBinary()) = %d, want %d", len(ab), GeneralSize)
	}

	if got := a.ModelFilename(); got != DefaultModelFilename {
		t.Errorf("ModelFilename() = %q, want %q", got, DefaultModelFilename)
	}
	if got := a.Language(); got != "en" {
		t.Errorf("Language() = %q, want en", got)
	}
	if !a.CalibrationValid() {
		t.Error("default calibration checksum invalid")
	}
}

func TestGeneralRoundTrip(t *testing.T) {
	g := GeneralDefault()
	g.UnexpectedShutdown = 1
	g.CalibMid[2] = -77
	if err := g.SetModelFilename("model12.bin"); err != nil {
		t.Fatalf("SetModelFilename() error = %v", err)
	}

	data, err := g.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	var got GeneralSettings
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if got != g {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, g)
	}
	if got.CalibrationValid() {
		t.Error("CalibrationValid() = true after editing calibration")
	}
}

func TestSetModelFilename(t *testing.T) {
	g := GeneralDefault()

	tests := []struct {
		name    string
		wantErr bool
	}{
		{"model2.bin", false},
		{"0123456789abcdef", false},
		{"0123456789abcdefg", true},
		{"", true},
	}
	for _, tt := range tests {
		err := g.SetModelFilename(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("SetModelFilename(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && g.ModelFilename() != tt.name {
			t.Errorf("ModelFilename() = %q, want %q", g.ModelFilename(), tt.name)
		}
	}

	// A shorter name fully replaces a longer one.
	if err := g.SetModelFilename("m.bin"); err != nil {
		t.Fatalf("SetModelFilename() error = %v", err)
	}
	if g.ModelFilename() != "m.bin" {
		t.Errorf("ModelFilename() = %q, want m.bin", g.ModelFilename())
	}
}

func TestUnmarshalRejectsWrongSize(t *testing.T) {
	var g GeneralSettings
	if err := g.UnmarshalBinary(make([]byte, GeneralSize-1)); err == nil {
		t.Error("UnmarshalBinary() accepted a short payload")
	}
	var m ModelData
	if err := m.UnmarshalBinary(make([]byte, ModelSize+1)); err == nil {
		t.Error("UnmarshalBinary() accepted a long payload")
	}
}

func TestModelDefault(t *testing.T) {
	tests := []struct {
		index    int
		wantName string
	}{
		{0, ""},
		{1, "MODEL01"},
		{12, "MODEL12"},
	}
	for _, tt := range tests {
		m := ModelDefault(tt.index)
		if got := m.Name(); got != tt.wantName {
			t.Errorf("ModelDefault(%d).Name() = %q, want %q", tt.index, got, tt.wantName)
		}
		for i, l := range m.Limits {
			if l.Min != OutputMin || l.Max != OutputMax {
				t.Fatalf("ModelDefault(%d) limit %d = %+v", tt.index, i, l)
			}
		}
	}
}

func TestModelRoundTrip(t *testing.T) {
	m := ModelDefault(3)
	m.SetName("GLIDER")
	m.Trims[1] = 25
	m.Limits[4].Offset = 300
	m.Timers[2].Start = 600

	data, err := m.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	if len(data) != ModelSize {
		t.Fatalf("len(MarshalBinary()) = %d, want %d", len(data), ModelSize)
	}
	var got ModelData
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if got != m {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, m)
	}
}

func TestChannelOutputs(t *testing.T) {
	m := ModelDefault(1)
	m.Limits[0].Offset = 200
	m.Limits[1].Offset = 2000
	m.Limits[2].Offset = 100
	m.Limits[2].Revert = 1
	m.Limits[3].Offset = -50
	m.Limits[3].Min = 0

	out := m.ChannelOutputs()
	if len(out) != NumChannels {
		t.Fatalf("len(ChannelOutputs()) = %d, want %d", len(out), NumChannels)
	}
	want := []int16{200, OutputMax, -100, 0}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("channel %d = %d, want %d", i, out[i], w)
		}
	}
}
