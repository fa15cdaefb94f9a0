package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a Store kept in process memory. It is safe for concurrent use.
type Memory struct {
	mu           sync.RWMutex
	measurements map[Key]map[int]Measurement
	tolerances   map[Key]Tolerance
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		measurements: make(map[Key]map[int]Measurement),
		tolerances:   make(map[Key]Tolerance),
	}
}

func (s *Memory) PutMeasurement(ctx context.Context, key Key, m Measurement) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pieces, ok := s.measurements[key]
	if !ok {
		pieces = make(map[int]Measurement)
		s.measurements[key] = pieces
	}
	pieces[m.Piece] = m
	return nil
}

func (s *Memory) Measurements(ctx context.Context, key Key) ([]Measurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	pieces := s.measurements[key]
	out := make([]Measurement, 0, len(pieces))
	for _, m := range pieces {
		out = append(out, m)
	}
	sortByPiece(out)
	return out, nil
}

func (s *Memory) Characteristics(ctx context.Context, structure string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	for k := range s.measurements {
		if k.Structure == structure {
			seen[k.Characteristic] = true
		}
	}
	for k := range s.tolerances {
		if k.Structure == structure {
			seen[k.Characteristic] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Memory) PutTolerance(ctx context.Context, key Key, t Tolerance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tolerances[key] = t
	return nil
}

func (s *Memory) Tolerance(ctx context.Context, key Key) (Tolerance, error) {
	if err := ctx.Err(); err != nil {
		return Tolerance{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tolerances[key]
	if !ok {
		return Tolerance{}, ErrNotFound
	}
	return t, nil
}

func (s *Memory) Close() error { return nil }
