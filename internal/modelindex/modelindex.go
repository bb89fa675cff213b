// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

// Package modelindex parses and writes the model manifest (RADIO/models.txt).
//
// The manifest is line oriented:
//
//	[Models]
//	model1.bin
//	model2.bin
//	[Gliders]
//	model3.bin
//
// A bracketed line starts a category and every following line names a model
// file in that category. Order is significant and preserved.
package modelindex

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/tomtom215/radiostore/internal/storage"
)

// DefaultCategory is the single category of a freshly formatted medium.
const DefaultCategory = "Models"

// ErrManifest wraps every failure to read or parse the manifest.
var ErrManifest = errors.New("modelindex: manifest unavailable")

// ModelRef references one model file.
type ModelRef struct {
	Filename string `json:"filename" yaml:"filename"`
	// Name is the display name read from the model record, if known.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Category is a named, ordered group of models.
type Category struct {
	Name   string     `json:"name" yaml:"name"`
	Models []ModelRef `json:"models" yaml:"models"`
}

// Empty reports whether c holds no models.
func (c *Category) Empty() bool {
	return len(c.Models) == 0
}

// Index is the ordered list of categories.
type Index struct {
	categories []*Category
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Default returns the index written by a format: one category holding the
// default model.
func Default(filename string) *Index {
	x := New()
	x.AddModel(DefaultCategory, filename)
	return x
}

// Parse reads a manifest.
func Parse(r io.Reader) (*Index, error) {
	x := New()
	var current *Category

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") || len(line) < 3 {
				return nil, fmt.Errorf("%w: line %d: malformed category %q", ErrManifest, lineNo, line)
			}
			current = x.AddCategory(line[1 : len(line)-1])
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("%w: line %d: model %q outside any category", ErrManifest, lineNo, line)
		}
		if !validFilename(line) {
			return nil, fmt.Errorf("%w: line %d: invalid model filename %q", ErrManifest, lineNo, line)
		}
		current.Models = append(current.Models, ModelRef{Filename: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}
	return x, nil
}

func validFilename(name string) bool {
	return name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// Load reads and parses the manifest from vol.
func Load(vol storage.Volume) (*Index, error) {
	data, err := storage.ReadFile(vol, storage.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}
	return Parse(bytes.NewReader(data))
}

// WriteTo writes the manifest form of x to w.
func (x *Index) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64
	for _, c := range x.categories {
		n, err := fmt.Fprintf(bw, "[%s]\n", c.Name)
		total += int64(n)
		if err != nil {
			return total, err
		}
		for _, m := range c.Models {
			n, err := fmt.Fprintf(bw, "%s\n", m.Filename)
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, bw.Flush()
}

// Bytes returns the manifest form of x.
func (x *Index) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = x.WriteTo(&buf)
	return buf.Bytes()
}

// Save writes x to the manifest path on vol.
func (x *Index) Save(vol storage.Volume) error {
	return storage.WriteFile(vol, storage.ManifestPath, x.Bytes())
}

// AddCategory returns the category named name, appending it if missing.
func (x *Index) AddCategory(name string) *Category {
	for _, c := range x.categories {
		if c.Name == name {
			return c
		}
	}
	c := &Category{Name: name}
	x.categories = append(x.categories, c)
	return c
}

// AddModel appends filename to category, creating the category if needed.
func (x *Index) AddModel(category, filename string) {
	c := x.AddCategory(category)
	c.Models = append(c.Models, ModelRef{Filename: filename})
}

// Contains reports whether any category references filename.
func (x *Index) Contains(filename string) bool {
	for _, m := range x.Models() {
		if m.Filename == filename {
			return true
		}
	}
	return false
}

// Categories returns the categories in manifest order.
func (x *Index) Categories() []*Category {
	return x.categories
}

// ModelCount returns the number of model references across all categories.
func (x *Index) ModelCount() int {
	n := 0
	for _, c := range x.categories {
		n += len(c.Models)
	}
	return n
}

// Models yields every (category, model) pair in manifest order. Empty
// categories yield nothing. The sequence can be ranged over repeatedly.
func (x *Index) Models() iter.Seq2[*Category, ModelRef] {
	return func(yield func(*Category, ModelRef) bool) {
		for _, c := range x.categories {
			if c.Empty() {
				continue
			}
			for _, m := range c.Models {
				if !yield(c, m) {
					return
				}
			}
		}
	}
}
