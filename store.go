// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ArtifactSeparator joins source stems in an artifact name.
const ArtifactSeparator = "_"

// ArtifactName derives the cache entry name for a program: the stems of its
// sources in pipeline order joined by ArtifactSeparator, plus ext.
//
//	("cube.mesh", "base.frag"), ".bin" → "cube_base.bin"
func ArtifactName(units []SourceUnit, ext string) string {
	stems := make([]string, len(units))
	for i, u := range units {
		stems[i] = u.Stem()
	}
	return strings.Join(stems, ArtifactSeparator) + ext
}

// Entry file layout: entryMagic, the format tag as a little-endian uint32,
// then the device binary.
const entryHeaderSize = 8

var entryMagic = [4]byte{'P', 'C', 'E', '1'}

// ArtifactStore persists serialized program binaries under a cache root,
// one file per program. Each file records the format tag the device
// reported when the binary was written, so Load can refuse a binary from
// a different driver without handing it to the device.
//
// An ArtifactStore assumes it is the only writer for its root. Within a
// process it also tracks which sources own each entry name, so distinct
// source combinations whose names collide are refused instead of sharing
// a binary.
type ArtifactStore struct {
	root   string
	device Device

	mu     sync.Mutex
	owners map[string]string
}

// NewArtifactStore creates a store rooted at root. The directory is created
// lazily on the first Save.
func NewArtifactStore(root string, device Device) (*ArtifactStore, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return &ArtifactStore{root: root, device: device, owners: make(map[string]string)}, nil
}

// Root returns the cache root directory.
func (s *ArtifactStore) Root() string { return s.root }

// Path returns the file path of the named entry.
func (s *ArtifactStore) Path(name string) string {
	return filepath.Join(s.root, name)
}

// Claim binds the named entry to the sources of units. It fails with
// ErrEntryConflict when a different combination of sources or stages
// already claimed name on this store.
func (s *ArtifactStore) Claim(name string, units []SourceUnit) error {
	owner := entryOwner(units)
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.owners[name]; ok && prev != owner {
		return fmt.Errorf("%w: %s belongs to [%s], requested by [%s]", ErrEntryConflict, name, prev, owner)
	}
	s.owners[name] = owner
	return nil
}

func entryOwner(units []SourceUnit) string {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = u.Stage.String() + ":" + u.Name
	}
	return strings.Join(parts, " ")
}

// Stat returns the modification time of the named entry. ok is false when
// the entry is missing or cannot be inspected.
func (s *ArtifactStore) Stat(name string) (modTime time.Time, ok bool) {
	info, err := os.Stat(s.Path(name))
	if err != nil || !info.Mode().IsRegular() {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Save serializes a linked program and writes it to the named entry,
// replacing any previous content. The cache root is created if absent.
// Failures are reported as *CacheWriteError.
func (s *ArtifactStore) Save(name string, a *LinkedArtifact) error {
	if a == nil || !a.Linked() {
		return &CacheWriteError{Name: name, Err: ErrNotLinked}
	}
	format, blob, err := s.device.ProgramBinary(a.Handle())
	if err != nil {
		return &CacheWriteError{Name: name, Err: fmt.Errorf("serialize program: %w", err)}
	}
	if len(blob) == 0 {
		return &CacheWriteError{Name: name, Err: errors.New("device returned an empty program binary")}
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return &CacheWriteError{Name: name, Err: fmt.Errorf("create cache root: %w", err)}
	}
	if err := writeFileAtomic(s.Path(name), encodeEntry(format, blob), 0o644); err != nil {
		return &CacheWriteError{Name: name, Err: err}
	}
	return nil
}

// Load reads the named entry and materializes a program from it using the
// device's current binary format. It never modifies the store.
//
// Every failure is a *CacheReadError. An entry written under another
// format tag wraps ErrFormatChanged and never reaches the device. When
// the device rejects the binary (truncated or corrupt data) the wrapped
// error is a *LinkError carrying the device log.
func (s *ArtifactStore) Load(name string, stages Variant) (*LinkedArtifact, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, &CacheReadError{Name: name, Err: err}
	}
	saved, blob, err := decodeEntry(data)
	if err != nil {
		return nil, &CacheReadError{Name: name, Err: err}
	}
	format := s.device.BinaryFormat()
	if saved != format {
		return nil, &CacheReadError{Name: name,
			Err: fmt.Errorf("%w: entry %#x, device %#x", ErrFormatChanged, uint32(saved), uint32(format))}
	}

	program, err := s.device.CreateProgram()
	if err != nil {
		return nil, &CacheReadError{Name: name, Err: fmt.Errorf("create program: %w", err)}
	}
	ok, log := s.device.LoadProgramBinary(program, format, blob)
	a := &LinkedArtifact{
		device: s.device,
		handle: program,
		stages: stages,
		origin: OriginCache,
		log:    log,
	}
	if !ok {
		a.Release()
		return nil, &CacheReadError{Name: name, Err: &LinkError{Stages: stages, Log: log}}
	}
	a.linked = true
	return a, nil
}

func encodeEntry(format BinaryFormat, blob []byte) []byte {
	out := make([]byte, entryHeaderSize, entryHeaderSize+len(blob))
	copy(out, entryMagic[:])
	binary.LittleEndian.PutUint32(out[4:], uint32(format))
	return append(out, blob...)
}

func decodeEntry(data []byte) (BinaryFormat, []byte, error) {
	if len(data) < entryHeaderSize || !bytes.Equal(data[:4], entryMagic[:]) {
		return 0, nil, errors.New("missing entry header")
	}
	blob := data[entryHeaderSize:]
	if len(blob) == 0 {
		return 0, nil, errors.New("empty entry")
	}
	return BinaryFormat(binary.LittleEndian.Uint32(data[4:])), blob, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place, so readers never observe a partially written entry.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
