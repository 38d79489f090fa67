package search

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"exmcp/internal/domain"
)

// Lister is the slice of the catalog client the engine needs.
type Lister interface {
	ListAssets(ctx context.Context, term string, types []string, limit int) ([]domain.CatalogAsset, error)
}

const (
	scoreNameExact   = 8
	scoreName        = 4
	scoreDescription = 2
	scoreTag         = 1
)

// Engine filters and ranks catalog entries in process. The listing is
// fetched once per call; nothing is cached across calls.
type Engine struct {
	catalog Lister
	logger  *zap.Logger

	defaultLimit int
	fetchLimit   int
}

func NewEngine(catalog Lister, logger *zap.Logger, defaultLimit, fetchLimit int) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultLimit <= 0 {
		defaultLimit = domain.DefaultSearchLimit
	}
	if fetchLimit < defaultLimit {
		fetchLimit = domain.DefaultSearchFetch
	}
	return &Engine{
		catalog:      catalog,
		logger:       logger.Named("search"),
		defaultLimit: defaultLimit,
		fetchLimit:   fetchLimit,
	}
}

type scored struct {
	asset domain.CatalogAsset
	score int
}

// Search returns assets matching term and/or category, ranked by relevance
// and truncated to limit. Both filters combine with AND. Matching nothing
// is an empty result, not an error.
func (e *Engine) Search(ctx context.Context, term, category string, limit int) ([]domain.CatalogAsset, error) {
	if limit <= 0 || limit > e.fetchLimit {
		limit = e.defaultLimit
	}

	assets, err := e.catalog.ListAssets(ctx, term, domain.DefaultAPITypes, e.fetchLimit)
	if err != nil {
		return nil, err
	}

	term = strings.TrimSpace(term)
	category = strings.TrimSpace(category)

	matches := make([]scored, 0, len(assets))
	for _, asset := range assets {
		if category != "" && !asset.HasTag(category) {
			continue
		}
		score, ok := scoreAsset(asset, term)
		if !ok {
			continue
		}
		matches = append(matches, scored{asset: asset, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		ni, nj := strings.ToLower(matches[i].asset.Name), strings.ToLower(matches[j].asset.Name)
		if ni != nj {
			return ni < nj
		}
		return matches[i].asset.Name < matches[j].asset.Name
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	result := make([]domain.CatalogAsset, len(matches))
	for i, m := range matches {
		result[i] = m.asset
	}
	e.logger.Debug("search completed",
		zap.String("term", term),
		zap.String("category", category),
		zap.Int("matches", len(result)),
	)
	return result, nil
}

// scoreAsset scores a term match: name beats description beats tags. An
// empty term matches everything with a neutral score.
func scoreAsset(asset domain.CatalogAsset, term string) (int, bool) {
	if term == "" {
		return 0, true
	}
	folded := strings.ToLower(term)

	score := 0
	name := strings.ToLower(asset.Name)
	if name == folded {
		score += scoreNameExact
	}
	if strings.Contains(name, folded) {
		score += scoreName
	}
	if strings.Contains(strings.ToLower(asset.Description), folded) {
		score += scoreDescription
	}
	for _, tag := range asset.Tags {
		if strings.Contains(strings.ToLower(tag), folded) {
			score += scoreTag
			break
		}
	}
	return score, score > 0
}
