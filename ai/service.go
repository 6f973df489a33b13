package ai

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
)

// Service wraps an Embedder with lazy once-only initialization, vector
// validation and similarity scoring.
//
// The underlying model handle is created on first use. A failed load is
// cached: subsequent calls return ErrEmbeddingUnavailable without retrying
// until Reset is called explicitly. After a successful load, Generate and
// GenerateBatch may be called concurrently without additional
// synchronization.
type Service struct {
	config  *Config
	factory Factory
	logger  *slog.Logger

	mu          sync.Mutex
	embedder    Embedder
	initErr     error
	initialized bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates an embedding service. The factory is invoked lazily on
// the first Generate/GenerateBatch call.
func NewService(config *Config, factory Factory, opts ...ServiceOption) (*Service, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}
	if factory == nil {
		return nil, ErrFactoryRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		config:  config,
		factory: factory,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Dimension returns the configured embedding vector length.
func (s *Service) Dimension() int {
	return s.config.Dimension
}

// Ready reports whether the model handle is loaded and usable. It never
// triggers a load itself.
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized && s.initErr == nil
}

// Reset discards the cached model handle and any cached load failure, so the
// next call attempts the load again. Intended for explicit recovery and for
// test teardown, never called implicitly.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedder = nil
	s.initErr = nil
	s.initialized = false
}

// get returns the model handle, loading it on first call. Only one load
// attempt runs even under concurrent first calls; the outcome is cached
// either way.
func (s *Service) get() (Embedder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		s.initialized = true
		embedder, err := s.factory(s.config)
		if err != nil {
			s.logger.Error("embedding model failed to load",
				"model", s.config.EmbeddingModel, "err", err)
			s.initErr = fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
		} else {
			s.logger.Info("embedding model loaded",
				"model", s.config.EmbeddingModel, "dimension", s.config.Dimension)
			s.embedder = embedder
		}
	}

	if s.initErr != nil {
		return nil, s.initErr
	}
	return s.embedder, nil
}

// Generate produces an embedding for a single text.
// Returns ErrEmptyInput for blank text, ErrEmbeddingUnavailable when the
// model handle cannot be loaded, and ErrInvalidVector when the backend
// returns a vector that fails validation.
func (s *Service) Generate(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	embedder, err := s.get()
	if err != nil {
		return nil, err
	}

	vector, err := embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	if !s.Validate(vector) {
		return nil, fmt.Errorf("%w: got length %d, want %d",
			ErrInvalidVector, len(vector), s.config.Dimension)
	}
	return vector, nil
}

// GenerateBatch produces one embedding slot per input text, in order. Blank
// inputs map to a nil slot without aborting the batch; callers are expected
// to validate and drop slots individually. A backend failure aborts the
// whole batch.
func (s *Service) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	// Collect the non-blank inputs, remembering their original positions.
	positions := make([]int, 0, len(texts))
	nonBlank := make([]string, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		positions = append(positions, i)
		nonBlank = append(nonBlank, text)
	}

	if len(nonBlank) == 0 {
		return results, nil
	}

	embedder, err := s.get()
	if err != nil {
		return nil, err
	}

	embeddings, err := embedder.EmbedTexts(ctx, nonBlank)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(nonBlank) {
		return nil, fmt.Errorf("embedding result mismatch: expected %d, received %d",
			len(nonBlank), len(embeddings))
	}

	for i, pos := range positions {
		results[pos] = embeddings[i]
	}
	return results, nil
}

// Validate reports whether a vector has the configured dimension and contains
// only finite values.
func (s *Service) Validate(vector []float32) bool {
	if len(vector) != s.config.Dimension {
		return false
	}
	for _, v := range vector {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Similarity returns the cosine similarity of two vectors, in [-1, 1].
// Returns 0.0 when either vector has zero norm, so it never divides by zero.
func Similarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	for i := n; i < len(a); i++ {
		normA += float64(a[i]) * float64(a[i])
	}
	for i := n; i < len(b); i++ {
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return float32(sim)
}

// Similarity returns the cosine similarity of two vectors, in [-1, 1].
func (s *Service) Similarity(a, b []float32) float32 {
	return Similarity(a, b)
}
