package inference

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cyclopcam/leafscan/pkg/nn"
	"github.com/cyclopcam/leafscan/server/backend"
	"github.com/cyclopcam/logs"
)

var ErrValidation = errors.New("Invalid request")
var ErrUnknownBackend = errors.New("No backend is configured for category")

// Request carries everything that a single submission needs.
// There is no other per-request state.
type Request struct {
	Category   string
	Confidence float32
	Image      []byte
}

// Store is where successful results are persisted.
// *resultdb.ResultDB is the production implementation.
type Store interface {
	Insert(category string, payload []byte) (int64, error)
}

// Result of a successful Submit
type Result struct {
	ID       int64                `json:"id"`
	Category string               `json:"category"`
	Kind     backend.Kind         `json:"kind"`
	Payload  []byte               `json:"payload"`
	Objects  []nn.ObjectDetection `json:"objects,omitempty"` // Boxes that were drawn (detector only)
	Labels   []nn.Classification  `json:"labels,omitempty"`  // Ranked labels (classifier only)
	Duration time.Duration        `json:"-"`
}

// Service dispatches images to backends, and records the results.
// The category to backend mapping is fixed when the Service is created.
type Service struct {
	log      logs.Log
	store    Store
	backends map[string]backend.ModelBackend
}

func NewService(log logs.Log, store Store, backends map[string]backend.ModelBackend) *Service {
	m := map[string]backend.ModelBackend{}
	for cat, b := range backends {
		m[cat] = b
	}
	return &Service{
		log:      log,
		store:    store,
		backends: m,
	}
}

// Categories returns the configured categories, sorted
func (s *Service) Categories() []string {
	cats := make([]string, 0, len(s.backends))
	for c := range s.backends {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Backend returns the backend for a category, or nil
func (s *Service) Backend(category string) backend.ModelBackend {
	return s.backends[category]
}

// Close releases every backend
func (s *Service) Close() {
	for _, b := range s.backends {
		b.Close()
	}
}

// Submit runs the backend for req.Category on req.Image, and persists the output.
// Nothing is persisted unless inference succeeds.
// Errors from the backend (backend.ErrInvalidInput, backend.ErrInference) are returned unmodified.
func (s *Service) Submit(req *Request) (*Result, error) {
	if !(req.Confidence >= 0 && req.Confidence <= 1) {
		return nil, fmt.Errorf("%w: confidence %v is outside of [0, 1]", ErrValidation, req.Confidence)
	}
	b := s.backends[req.Category]
	if b == nil {
		return nil, fmt.Errorf("%w '%v'", ErrUnknownBackend, req.Category)
	}

	start := time.Now()
	out, err := b.Predict(req.Image, req.Confidence)
	if err != nil {
		s.log.Warnf("Inference on category '%v' failed: %v", req.Category, err)
		return nil, err
	}
	payload, err := EncodePayload(out)
	if err != nil {
		return nil, fmt.Errorf("%w: Failed to encode %v output: %w", backend.ErrInference, out.Kind, err)
	}
	duration := time.Since(start)

	id, err := s.store.Insert(req.Category, payload)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Result %v: category '%v', %v, %v bytes, %.0f ms", id, req.Category, out.Kind, len(payload), duration.Seconds()*1000)

	return &Result{
		ID:       id,
		Category: req.Category,
		Kind:     out.Kind,
		Payload:  payload,
		Objects:  out.Objects,
		Labels:   out.Labels,
		Duration: duration,
	}, nil
}
