// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package storage

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"testing"
)

// volumeFactories returns a mounted volume of each implementation.
func volumeFactories() map[string]func(t *testing.T) MountedVolume {
	return map[string]func(t *testing.T) MountedVolume{
		"dir": func(t *testing.T) MountedVolume {
			t.Helper()
			v := NewDirVolume(t.TempDir())
			if err := v.Mount(); err != nil {
				t.Fatalf("Mount() error = %v", err)
			}
			return v
		},
		"badger": func(t *testing.T) MountedVolume {
			t.Helper()
			v := NewBadgerVolume(BadgerOptions{InMemory: true})
			if err := v.Mount(); err != nil {
				t.Fatalf("Mount() error = %v", err)
			}
			t.Cleanup(func() { _ = v.Close() })
			return v
		},
	}
}

func TestVolumeWriteReadRoundTrip(t *testing.T) {
	for name, newVolume := range volumeFactories() {
		t.Run(name, func(t *testing.T) {
			vol := newVolume(t)

			if err := vol.MkdirAll(RadioDir); err != nil {
				t.Fatalf("MkdirAll() error = %v", err)
			}
			want := []byte("calibration data")
			if err := WriteFile(vol, SettingsPath, want); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}

			got, err := ReadFile(vol, SettingsPath)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("ReadFile() = %q, want %q", got, want)
			}

			info, err := vol.Stat(SettingsPath)
			if err != nil {
				t.Fatalf("Stat() error = %v", err)
			}
			if info.Size() != int64(len(want)) || info.IsDir() {
				t.Errorf("Stat() size=%d dir=%v, want size=%d file", info.Size(), info.IsDir(), len(want))
			}
		})
	}
}

func TestVolumeCreateRequiresParent(t *testing.T) {
	for name, newVolume := range volumeFactories() {
		t.Run(name, func(t *testing.T) {
			vol := newVolume(t)

			_, err := vol.Create("MODELS/model1.bin")
			if !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("Create() without parent error = %v, want fs.ErrNotExist", err)
			}
		})
	}
}

func TestVolumeCreateTruncates(t *testing.T) {
	for name, newVolume := range volumeFactories() {
		t.Run(name, func(t *testing.T) {
			vol := newVolume(t)

			if err := WriteFile(vol, "a.bin", []byte("0123456789")); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if err := WriteFile(vol, "a.bin", []byte("xy")); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			got, err := ReadFile(vol, "a.bin")
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if string(got) != "xy" {
				t.Errorf("ReadFile() = %q, want %q", got, "xy")
			}
		})
	}
}

func TestVolumeWriteAtAndSeek(t *testing.T) {
	for name, newVolume := range volumeFactories() {
		t.Run(name, func(t *testing.T) {
			vol := newVolume(t)

			f, err := vol.Create("c.otx")
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			// Reserve a header, stream a body, then patch the header.
			if _, err := f.Write(make([]byte, 4)); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if _, err := f.Write([]byte("body")); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if _, err := f.WriteAt([]byte("HEAD"), 0); err != nil {
				t.Fatalf("WriteAt() error = %v", err)
			}
			pos, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				t.Fatalf("Seek() error = %v", err)
			}
			if pos != 8 {
				t.Errorf("position after WriteAt = %d, want 8", pos)
			}
			if err := f.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			r, err := vol.Open("c.otx")
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer r.Close()

			buf := make([]byte, 4)
			if _, err := r.ReadAt(buf, 4); err != nil {
				t.Fatalf("ReadAt() error = %v", err)
			}
			if string(buf) != "body" {
				t.Errorf("ReadAt(4) = %q, want %q", buf, "body")
			}
			all, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(all) != "HEADbody" {
				t.Errorf("contents = %q, want %q", all, "HEADbody")
			}
		})
	}
}

func TestVolumeReadDirSorted(t *testing.T) {
	for name, newVolume := range volumeFactories() {
		t.Run(name, func(t *testing.T) {
			vol := newVolume(t)

			if err := vol.MkdirAll(ModelsDir); err != nil {
				t.Fatalf("MkdirAll() error = %v", err)
			}
			for _, n := range []string{"model3.bin", "model1.bin", "model2.bin"} {
				if err := WriteFile(vol, ModelPath(n), []byte{1}); err != nil {
					t.Fatalf("WriteFile(%s) error = %v", n, err)
				}
			}
			if err := vol.MkdirAll(ModelsDir + "/nested"); err != nil {
				t.Fatalf("MkdirAll() error = %v", err)
			}

			entries, err := vol.ReadDir(ModelsDir)
			if err != nil {
				t.Fatalf("ReadDir() error = %v", err)
			}
			var names []string
			for _, e := range entries {
				names = append(names, e.Name())
			}
			want := []string{"model1.bin", "model2.bin", "model3.bin", "nested"}
			if len(names) != len(want) {
				t.Fatalf("ReadDir() = %v, want %v", names, want)
			}
			for i := range want {
				if names[i] != want[i] {
					t.Errorf("entry %d = %q, want %q", i, names[i], want[i])
				}
			}
			if !entries[3].IsDir() {
				t.Error("nested entry should be a directory")
			}
		})
	}
}

func TestVolumeRemove(t *testing.T) {
	for name, newVolume := range volumeFactories() {
		t.Run(name, func(t *testing.T) {
			vol := newVolume(t)

			if err := vol.MkdirAll(BackupsDir); err != nil {
				t.Fatalf("MkdirAll() error = %v", err)
			}
			p := BackupsDir + "/backup.otx"
			if err := WriteFile(vol, p, []byte("partial")); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if err := vol.Remove(p); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
			if Exists(vol, p) {
				t.Error("file still exists after Remove")
			}
			if err := vol.Remove(p); !errors.Is(err, fs.ErrNotExist) {
				t.Errorf("second Remove() error = %v, want fs.ErrNotExist", err)
			}
		})
	}
}

func TestVolumeUnmounted(t *testing.T) {
	for name, newVolume := range volumeFactories() {
		t.Run(name, func(t *testing.T) {
			vol := newVolume(t)

			if err := vol.Unmount(); err != nil {
				t.Fatalf("Unmount() error = %v", err)
			}
			if vol.Mounted() {
				t.Error("Mounted() = true after Unmount")
			}
			if _, err := vol.Open(SettingsPath); !errors.Is(err, ErrNotMounted) {
				t.Errorf("Open() error = %v, want ErrNotMounted", err)
			}
			if err := vol.Unmount(); !errors.Is(err, ErrNotMounted) {
				t.Errorf("second Unmount() error = %v, want ErrNotMounted", err)
			}
		})
	}
}

func TestVolumeRejectsInvalidPaths(t *testing.T) {
	paths := []string{"/RADIO/radio.bin", "../escape.bin", "RADIO//radio.bin", ".", ""}

	for name, newVolume := range volumeFactories() {
		t.Run(name, func(t *testing.T) {
			vol := newVolume(t)
			for _, p := range paths {
				if _, err := vol.Create(p); !errors.Is(err, ErrInvalidPath) {
					t.Errorf("Create(%q) error = %v, want ErrInvalidPath", p, err)
				}
			}
		})
	}
}

func TestBadgerInMemorySurvivesRemount(t *testing.T) {
	vol := NewBadgerVolume(BadgerOptions{InMemory: true})
	if err := vol.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	defer vol.Close()

	if err := WriteFile(vol, "keep.bin", []byte("kept")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := vol.Unmount(); err != nil {
		t.Fatalf("Unmount() error = %v", err)
	}
	if err := vol.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	got, err := ReadFile(vol, "keep.bin")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "kept" {
		t.Errorf("ReadFile() = %q, want %q", got, "kept")
	}
}

func TestBadgerOnDiskPersists(t *testing.T) {
	dir := t.TempDir()

	vol := NewBadgerVolume(BadgerOptions{Dir: dir})
	if err := vol.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if err := vol.MkdirAll(RadioDir); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := WriteFile(vol, ManifestPath, []byte("[Models]\n")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := vol.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened := NewBadgerVolume(BadgerOptions{Dir: dir})
	if err := reopened.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	defer reopened.Close()

	got, err := ReadFile(reopened, ManifestPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "[Models]\n" {
		t.Errorf("ReadFile() = %q", got)
	}
}

func TestBadgerReadOnlyFile(t *testing.T) {
	vol := NewBadgerVolume(BadgerOptions{InMemory: true})
	if err := vol.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	defer vol.Close()

	if err := WriteFile(vol, "ro.bin", []byte("x")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	f, err := vol.Open("ro.bin")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := f.Write([]byte("y")); !errors.Is(err, fs.ErrPermission) {
		t.Errorf("Write() on read-only file error = %v, want fs.ErrPermission", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := f.Close(); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("second Close() error = %v, want fs.ErrClosed", err)
	}
}

func TestIsModelPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"MODELS/model1.bin", true},
		{"MODELS/model1.txt", false},
		{"MODELS/sub/model1.bin", false},
		{"RADIO/radio.bin", false},
		{"MODELS/", false},
		{"model1.bin", false},
	}
	for _, tt := range tests {
		if got := IsModelPath(tt.path); got != tt.want {
			t.Errorf("IsModelPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestEnsureDir(t *testing.T) {
	vol := NewDirVolume(t.TempDir())
	if err := vol.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}

	if err := EnsureDir(vol, BackupsDir); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	if err := EnsureDir(vol, BackupsDir); err != nil {
		t.Fatalf("second EnsureDir() error = %v", err)
	}
	if err := WriteFile(vol, "plain", nil); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := EnsureDir(vol, "plain"); err == nil {
		t.Error("EnsureDir() over a file should fail")
	}
}
