package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"github.com/couchcryptid/terroir-match-service/internal/matcher"
)

// ErrTransient marks a transform failure worth retrying, such as an upstream
// timeout. Anything else is final for the message.
var ErrTransient = errors.New("transient match failure")

// PointMatcher matches a single point.
type PointMatcher interface {
	Match(ctx context.Context, lat, lon float64) (domain.MatchResult, error)
}

// MatchTransformer implements Transformer by parsing the request and running
// a point match.
type MatchTransformer struct {
	matcher PointMatcher
	logger  *slog.Logger
}

// NewTransformer creates a MatchTransformer.
func NewTransformer(m PointMatcher, logger *slog.Logger) *MatchTransformer {
	return &MatchTransformer{matcher: m, logger: logger}
}

func (t *MatchTransformer) Transform(ctx context.Context, msg domain.InboundMessage) (domain.MatchResult, error) {
	req, err := domain.ParseMatchRequest(msg)
	if err != nil {
		return domain.MatchResult{}, err
	}

	result, err := t.matcher.Match(ctx, req.Lat, req.Lon)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) || matcher.IsInvalidInput(err) || errors.Is(err, domain.ErrInvalidCatalog) {
			return domain.MatchResult{}, fmt.Errorf("request %s: %w", req.ID, err)
		}
		return domain.MatchResult{}, fmt.Errorf("%w: request %s: %w", ErrTransient, req.ID, err)
	}

	result.RequestID = req.ID
	return result, nil
}
