package embedding

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync/atomic"
	"unicode"

	"gopkg.in/yaml.v3"
)

// HashManifest is the on-disk artifact of a feature-hashing model.
type HashManifest struct {
	Model string `yaml:"model"`
	Dims  int    `yaml:"dims"`
	NGram int    `yaml:"ngram"`
	Seed  uint64 `yaml:"seed"`
}

func (m *HashManifest) defaults(spec ModelSpec) {
	if m.Model == "" {
		m.Model = spec.ID
	}
	if m.Dims <= 0 {
		m.Dims = spec.Dims
	}
	if m.NGram <= 0 {
		m.NGram = 3
	}
}

func (m *HashManifest) validate() error {
	if m.Dims <= 0 {
		return fmt.Errorf("embedding: manifest %q: dims must be positive", m.Model)
	}
	return nil
}

// WriteHashManifest writes a manifest file, used to install a local model.
func WriteHashManifest(path string, m HashManifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("embedding: encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("embedding: writing manifest: %w", err)
	}
	return nil
}

// HashRuntime is a pure-Go lexical embedding model. Each lowercase token
// and each of its character n-grams is hashed into a signed bucket; the
// result is L2-normalized. It is deterministic for a given manifest.
type HashRuntime struct{}

// Load reads the YAML manifest at path.
func (HashRuntime) Load(_ context.Context, spec ModelSpec, path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("embedding: reading manifest %s: %w", path, err)
	}

	var m HashManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("embedding: parsing manifest %s: %w", path, err)
	}
	m.defaults(spec)
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &hashSession{manifest: m}, nil
}

type hashSession struct {
	manifest HashManifest
	busy     atomic.Bool
	closed   atomic.Bool
}

func (s *hashSession) Dims() int     { return s.manifest.Dims }
func (s *hashSession) Healthy() bool { return !s.closed.Load() }

func (s *hashSession) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *hashSession) Embed(ctx context.Context, text string) (Vector, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrSessionBusy
	}
	defer s.busy.Store(false)

	if s.closed.Load() {
		return nil, fmt.Errorf("embedding: session %q closed", s.manifest.Model)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	toks := tokenize(text)
	if len(toks) == 0 {
		toks = []string{strings.TrimSpace(text)}
	}

	v := make(Vector, s.manifest.Dims)
	for _, tok := range toks {
		s.add(v, tok, 1)
		padded := []rune("#" + tok + "#")
		n := s.manifest.NGram
		for i := 0; i+n <= len(padded); i++ {
			s.add(v, string(padded[i:i+n]), 0.5)
		}
	}
	normalize(v)
	return v, nil
}

func (s *hashSession) add(v Vector, feature string, weight float32) {
	h := fnv.New64a()
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], s.manifest.Seed)
	_, _ = h.Write(seed[:])
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := sum % uint64(len(v))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Interface guards.
var (
	_ Runtime = HashRuntime{}
	_ Session = (*hashSession)(nil)
)
