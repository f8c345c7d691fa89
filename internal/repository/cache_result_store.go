package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AleoRisk/internal/domain/models"
	"AleoRisk/internal/domain/repository"
	"AleoRisk/pkg/cache"
)

var _ repository.ResultStore = (*CacheResultStore)(nil)

// CacheResultStore keeps analysis results in a cache.Service with a TTL.
// Completed results are also indexed by proof ID.
type CacheResultStore struct {
	cache cache.Service
	ttl   time.Duration
}

// NewCacheResultStore stores results for ttl (zero keeps them forever).
func NewCacheResultStore(c cache.Service, ttl time.Duration) *CacheResultStore {
	return &CacheResultStore{cache: c, ttl: ttl}
}

func analysisKey(id string) string { return cache.GenerateKey("analysis", id) }
func proofKey(id string) string    { return cache.GenerateKey("proof", id) }

func (s *CacheResultStore) Save(ctx context.Context, r *models.AnalysisResult) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("save result: missing id")
	}
	if err := s.cache.Set(ctx, analysisKey(r.ID), r, s.ttl); err != nil {
		return fmt.Errorf("save result %s: %w", r.ID, err)
	}
	if r.ProofID != "" {
		if err := s.cache.Set(ctx, proofKey(r.ProofID), r.ID, s.ttl); err != nil {
			return fmt.Errorf("index proof %s: %w", r.ProofID, err)
		}
	}
	return nil
}

func (s *CacheResultStore) Get(ctx context.Context, id string) (*models.AnalysisResult, error) {
	var r models.AnalysisResult
	if err := s.cache.Get(ctx, analysisKey(id), &r); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get result %s: %w", id, err)
	}
	return &r, nil
}

func (s *CacheResultStore) FindByProof(ctx context.Context, proofID string) (*models.AnalysisResult, error) {
	var id string
	if err := s.cache.Get(ctx, proofKey(proofID), &id); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find proof %s: %w", proofID, err)
	}
	return s.Get(ctx, id)
}
