// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/radiostore/internal/logging"
)

// Key prefixes for BadgerDB storage
const (
	fileKeyPrefix = "f:"
	dirKeyPrefix  = "d:"
)

// BadgerOptions configures a BadgerVolume.
type BadgerOptions struct {
	// Dir is the BadgerDB directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps all data in memory. Contents survive Unmount/Mount
	// cycles and are discarded by Close.
	InMemory bool
}

// BadgerVolume stores each file as a single BadgerDB value. Directories are
// empty marker keys. File contents are buffered in memory while open and
// committed in one transaction on Close.
type BadgerVolume struct {
	opts    BadgerOptions
	mu      sync.RWMutex
	db      *badger.DB
	mounted bool
}

// NewBadgerVolume returns an unmounted volume.
func NewBadgerVolume(opts BadgerOptions) *BadgerVolume {
	return &BadgerVolume{opts: opts}
}

// Mount opens the database if needed.
func (v *BadgerVolume) Mount() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.db == nil {
		bo := badger.DefaultOptions(v.opts.Dir)
		if v.opts.InMemory {
			bo = badger.DefaultOptions("").WithInMemory(true)
		}
		bo = bo.WithLogger(badgerLogger{})

		db, err := badger.Open(bo)
		if err != nil {
			return fmt.Errorf("storage: open badger volume: %w", err)
		}
		v.db = db
	}
	v.mounted = true
	return nil
}

// Unmount releases the volume. On-disk databases are closed so the directory
// lock is released; in-memory databases stay open to keep their contents.
func (v *BadgerVolume) Unmount() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return ErrNotMounted
	}
	v.mounted = false
	if v.opts.InMemory {
		return nil
	}
	err := v.db.Close()
	v.db = nil
	return err
}

// Mounted reports whether the volume is mounted.
func (v *BadgerVolume) Mounted() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mounted
}

// Close unmounts and closes the database.
func (v *BadgerVolume) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.mounted = false
	if v.db == nil {
		return nil
	}
	err := v.db.Close()
	v.db = nil
	return err
}

func (v *BadgerVolume) handle(op, name string) (*badger.DB, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.mounted || v.db == nil {
		return nil, &fs.PathError{Op: op, Path: name, Err: ErrNotMounted}
	}
	if !validPath(name) {
		return nil, &fs.PathError{Op: op, Path: name, Err: ErrInvalidPath}
	}
	return v.db, nil
}

func keyExists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// dirExists treats the volume root as always present.
func dirExists(txn *badger.Txn, dir string) (bool, error) {
	if dir == "." || dir == "" {
		return true, nil
	}
	return keyExists(txn, dirKeyPrefix+dir)
}

// Create implements Volume.
func (v *BadgerVolume) Create(name string) (File, error) {
	db, err := v.handle("create", name)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(txn *badger.Txn) error {
		ok, err := dirExists(txn, path.Dir(name))
		if err != nil {
			return err
		}
		if !ok {
			return fs.ErrNotExist
		}
		isDir, err := keyExists(txn, dirKeyPrefix+name)
		if err != nil {
			return err
		}
		if isDir {
			return fs.ErrExist
		}
		return txn.Set([]byte(fileKeyPrefix+name), nil)
	})
	if err != nil {
		return nil, &fs.PathError{Op: "create", Path: name, Err: err}
	}

	return &badgerFile{vol: v, name: name, writable: true, modTime: time.Now()}, nil
}

// Open implements Volume.
func (v *BadgerVolume) Open(name string) (File, error) {
	db, err := v.handle("open", name)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fileKeyPrefix + name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fs.ErrNotExist
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	return &badgerFile{vol: v, name: name, data: data}, nil
}

// Remove implements Volume.
func (v *BadgerVolume) Remove(name string) error {
	db, err := v.handle("remove", name)
	if err != nil {
		return err
	}

	err = db.Update(func(txn *badger.Txn) error {
		isFile, err := keyExists(txn, fileKeyPrefix+name)
		if err != nil {
			return err
		}
		if isFile {
			return txn.Delete([]byte(fileKeyPrefix + name))
		}

		isDir, err := keyExists(txn, dirKeyPrefix+name)
		if err != nil {
			return err
		}
		if !isDir {
			return fs.ErrNotExist
		}
		children, err := listChildren(txn, name)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return errors.New("directory not empty")
		}
		return txn.Delete([]byte(dirKeyPrefix + name))
	})
	if err != nil {
		return &fs.PathError{Op: "remove", Path: name, Err: err}
	}
	return nil
}

// MkdirAll implements Volume.
func (v *BadgerVolume) MkdirAll(name string) error {
	db, err := v.handle("mkdir", name)
	if err != nil {
		return err
	}

	err = db.Update(func(txn *badger.Txn) error {
		parts := strings.Split(name, "/")
		for i := range parts {
			dir := strings.Join(parts[:i+1], "/")
			isFile, err := keyExists(txn, fileKeyPrefix+dir)
			if err != nil {
				return err
			}
			if isFile {
				return fmt.Errorf("%s is a file", dir)
			}
			if err := txn.Set([]byte(dirKeyPrefix+dir), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &fs.PathError{Op: "mkdir", Path: name, Err: err}
	}
	return nil
}

// Stat implements Volume.
func (v *BadgerVolume) Stat(name string) (fs.FileInfo, error) {
	db, err := v.handle("stat", name)
	if err != nil {
		return nil, err
	}

	var info fs.FileInfo
	err = db.View(func(txn *badger.Txn) error {
		var err error
		info, err = statKey(txn, name)
		return err
	})
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	return info, nil
}

func statKey(txn *badger.Txn, name string) (fs.FileInfo, error) {
	item, err := txn.Get([]byte(fileKeyPrefix + name))
	if err == nil {
		return fileInfo{name: path.Base(name), size: item.ValueSize()}, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, err
	}

	isDir, err := keyExists(txn, dirKeyPrefix+name)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, fs.ErrNotExist
	}
	return fileInfo{name: path.Base(name), dir: true}, nil
}

// ReadDir implements Volume.
func (v *BadgerVolume) ReadDir(name string) ([]fs.DirEntry, error) {
	db, err := v.handle("readdir", name)
	if err != nil {
		return nil, err
	}

	var infos []fs.FileInfo
	err = db.View(func(txn *badger.Txn) error {
		ok, err := keyExists(txn, dirKeyPrefix+name)
		if err != nil {
			return err
		}
		if !ok {
			return fs.ErrNotExist
		}
		infos, err = listChildren(txn, name)
		return err
	})
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}

	entries := make([]fs.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, fs.FileInfoToDirEntry(info))
	}
	return entries, nil
}

// listChildren returns the direct children of dir sorted by name.
func listChildren(txn *badger.Txn, dir string) ([]fs.FileInfo, error) {
	var infos []fs.FileInfo

	for _, prefix := range []string{fileKeyPrefix, dirKeyPrefix} {
		p := []byte(prefix + dir + "/")
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = p

		it := txn.NewIterator(opts)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			rest := strings.TrimPrefix(string(item.Key()), string(p))
			if rest == "" || strings.Contains(rest, "/") {
				continue
			}
			infos = append(infos, fileInfo{
				name: rest,
				size: item.ValueSize(),
				dir:  prefix == dirKeyPrefix,
			})
		}
		it.Close()
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

func (v *BadgerVolume) commit(name string, data []byte) error {
	db, err := v.handle("close", name)
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(fileKeyPrefix+name), data)
	})
}

type fileInfo struct {
	name    string
	size    int64
	dir     bool
	modTime time.Time
}

func (fi fileInfo) Name() string { return fi.name }
func (fi fileInfo) Size() int64  { return fi.size }
func (fi fileInfo) Mode() fs.FileMode {
	if fi.dir {
		return fs.ModeDir | 0o750
	}
	return 0o640
}
func (fi fileInfo) ModTime() time.Time { return fi.modTime }
func (fi fileInfo) IsDir() bool        { return fi.dir }
func (fi fileInfo) Sys() any           { return nil }

// badgerFile buffers a value in memory. Writable files are committed on Close.
type badgerFile struct {
	vol      *BadgerVolume
	name     string
	data     []byte
	off      int64
	writable bool
	closed   bool
	modTime  time.Time
}

func (f *badgerFile) Read(p []byte) (int, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	if f.off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.off:])
	f.off += int64(n)
	return n, nil
}

func (f *badgerFile) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	if off < 0 {
		return 0, errors.New("storage: negative offset")
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *badgerFile) Write(p []byte) (int, error) {
	n, err := f.WriteAt(p, f.off)
	f.off += int64(n)
	return n, err
}

func (f *badgerFile) WriteAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	if !f.writable {
		return 0, fs.ErrPermission
	}
	if off < 0 {
		return 0, errors.New("storage: negative offset")
	}
	end := off + int64(len(p))
	if end > int64(len(f.data)) {
		f.grow(end)
	}
	return copy(f.data[off:end], p), nil
}

func (f *badgerFile) grow(size int64) {
	if size <= int64(cap(f.data)) {
		f.data = f.data[:size]
		return
	}
	grown := make([]byte, size, size*2)
	copy(grown, f.data)
	f.data = grown
}

func (f *badgerFile) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.off + offset
	case io.SeekEnd:
		abs = int64(len(f.data)) + offset
	default:
		return 0, errors.New("storage: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("storage: negative position")
	}
	f.off = abs
	return abs, nil
}

func (f *badgerFile) Truncate(size int64) error {
	if f.closed {
		return fs.ErrClosed
	}
	if !f.writable {
		return fs.ErrPermission
	}
	if size < 0 {
		return errors.New("storage: negative size")
	}
	if size <= int64(len(f.data)) {
		clear(f.data[size:])
		f.data = f.data[:size]
		return nil
	}
	f.grow(size)
	return nil
}

func (f *badgerFile) Stat() (fs.FileInfo, error) {
	return fileInfo{name: path.Base(f.name), size: int64(len(f.data)), modTime: f.modTime}, nil
}

func (f *badgerFile) Close() error {
	if f.closed {
		return fs.ErrClosed
	}
	f.closed = true
	if !f.writable {
		return nil
	}
	return f.vol.commit(f.name, f.data)
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Str("component", "badger").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Str("component", "badger").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
