// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package pricing

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrModelNotFound is returned when a requested model version does not exist.
var ErrModelNotFound = errors.New("pricing: model not found")

// modelNamePattern keeps names filesystem-safe and free of the "_v" separator.
var modelNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

const modelFileSuffix = ".gob.gz"

// ModelMetadata describes a stored model artifact.
type ModelMetadata struct {
	Name               string    `json:"name"`
	Version            int       `json:"version"`
	TrainedAt          time.Time `json:"trained_at"`
	SavedAt            time.Time `json:"saved_at"`
	SampleCount        int       `json:"sample_count"`
	FeatureCount       int       `json:"feature_count"`
	Lambda             float64   `json:"lambda"`
	TrainRMSE          float64   `json:"train_rmse"`
	Checksum           string    `json:"checksum"`
	SizeBytes          int64     `json:"size_bytes"`
	TrainingDurationMS int64     `json:"training_duration_ms"`
}

// VersionString returns "name@vN".
func (m *ModelMetadata) VersionString() string {
	return FormatVersion(m.Name, m.Version)
}

// storedFile is the on-disk format for model files.
type storedFile struct {
	Metadata       ModelMetadata
	CompressedData []byte
}

// Store persists versioned model artifacts in a directory.
// Files are named {name}_v{version}.gob.gz and hold gob-encoded metadata
// plus the gzip-compressed gob payload, verified by SHA-256 on load.
type Store struct {
	baseDir  string
	mu       sync.RWMutex
	versions map[string]int // latest version per model name
}

// NewStore opens (creating if needed) a model store at baseDir.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]int),
	}
	if err := s.scanModels(); err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}
	return s, nil
}

// scanModels rebuilds the latest-version index from the directory.
func (s *Store) scanModels() error {
	found, err := s.listFiles()
	if err != nil {
		return err
	}
	s.versions = make(map[string]int)
	for name, versions := range found {
		s.versions[name] = versions[0]
	}
	return nil
}

// listFiles returns all stored versions per name, newest first.
func (s *Store) listFiles() (map[string][]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	found := make(map[string][]int)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), modelFileSuffix) {
			continue
		}
		name, version := parseModelFilename(strings.TrimSuffix(entry.Name(), modelFileSuffix))
		if name == "" {
			continue
		}
		found[name] = append(found[name], version)
	}
	for name := range found {
		sort.Sort(sort.Reverse(sort.IntSlice(found[name])))
	}
	return found, nil
}

// parseModelFilename extracts name and version from a base name like "ridge_v3".
func parseModelFilename(base string) (name string, version int) {
	idx := strings.LastIndex(base, "_v")
	if idx <= 0 {
		return "", 0
	}
	if _, err := fmt.Sscanf(base[idx+2:], "%d", &version); err != nil || version < 1 {
		return "", 0
	}
	if fmt.Sprintf("%d", version) != base[idx+2:] {
		return "", 0
	}
	return base[:idx], version
}

func (s *Store) modelPath(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", name, version, modelFileSuffix))
}

// Save writes data as the given version of name.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, name string, version int, data interface{}, meta ModelMetadata) (*ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !modelNamePattern.MatchString(name) {
		return nil, fmt.Errorf("pricing: invalid model name %q", name)
	}
	if version < 1 {
		return nil, fmt.Errorf("pricing: invalid model version %d", version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	rawData := buf.Bytes()

	hash := sha256.Sum256(rawData)
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return nil, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now().UTC()
	meta.Name = name
	meta.Version = version

	// Write to a temp file and rename so readers never see a partial model.
	tmp, err := os.CreateTemp(s.baseDir, ".model-*")
	if err != nil {
		return nil, fmt.Errorf("create model file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }() //nolint:errcheck // no-op after successful rename

	if err := gob.NewEncoder(tmp).Encode(storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return nil, fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.modelPath(name, version)); err != nil {
		return nil, fmt.Errorf("install model file: %w", err)
	}

	if current, ok := s.versions[name]; !ok || version > current {
		s.versions[name] = version
	}
	return &meta, nil
}

// Load reads a model into target. Version 0 loads the latest version.
func (s *Store) Load(ctx context.Context, name string, version int, target interface{}) (*ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		if version, ok = s.versions[name]; !ok {
			return nil, fmt.Errorf("%w: no versions of %s", ErrModelNotFound, name)
		}
	}

	f, err := os.Open(s.modelPath(name, version))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, FormatVersion(name, version))
	}
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(rawData)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(rawData)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &sf.Metadata, nil
}

// LatestVersion returns the latest stored version of name.
func (s *Store) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[name]
	return v, ok
}

// ListModels returns metadata for every stored version, ordered by name
// then version descending.
func (s *Store) ListModels(ctx context.Context) ([]ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := s.listFiles()
	if err != nil {
		return nil, fmt.Errorf("read model directory: %w", err)
	}
	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []ModelMetadata
	for _, name := range names {
		for _, version := range found[name] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			meta, err := s.readMetadata(name, version)
			if err != nil {
				continue
			}
			out = append(out, *meta)
		}
	}
	return out, nil
}

func (s *Store) readMetadata(name string, version int) (*ModelMetadata, error) {
	f, err := os.Open(s.modelPath(name, version))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only file

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, err
	}
	return &sf.Metadata, nil
}

// Prune removes old versions of name, keeping the newest keep versions.
// It returns the number of files removed.
func (s *Store) Prune(ctx context.Context, name string, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := s.listFiles()
	if err != nil {
		return 0, fmt.Errorf("read model directory: %w", err)
	}
	removed := 0
	versions := found[name]
	for i := keep; i < len(versions); i++ {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.Remove(s.modelPath(name, versions[i])); err != nil {
			return removed, fmt.Errorf("remove %s: %w", FormatVersion(name, versions[i]), err)
		}
		removed++
	}
	return removed, nil
}

// SaveRidge stores m as the next version of its name and updates
// m.ModelVersion.
func (s *Store) SaveRidge(ctx context.Context, m *RidgeModel) (*ModelMetadata, error) {
	if m.Name == "" {
		m.Name = DefaultModelName
	}
	next, _ := s.LatestVersion(m.Name)
	m.ModelVersion = next + 1

	return s.Save(ctx, m.Name, m.ModelVersion, m, ModelMetadata{
		TrainedAt:          m.TrainedAt,
		SampleCount:        m.SampleCount,
		FeatureCount:       len(m.FeatureNames),
		Lambda:             m.Lambda,
		TrainRMSE:          m.TrainRMSE,
		TrainingDurationMS: m.TrainingMillis,
	})
}

// LoadRidge loads a ridge model. Version 0 loads the latest.
func (s *Store) LoadRidge(ctx context.Context, name string, version int) (*RidgeModel, error) {
	var m RidgeModel
	meta, err := s.Load(ctx, name, version, &m)
	if err != nil {
		return nil, err
	}
	m.Name = meta.Name
	m.ModelVersion = meta.Version
	return &m, nil
}
