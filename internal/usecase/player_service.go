package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	"github.com/riskibarqy/cricket-ingest/internal/platform/logging"
)

const (
	expectedTeams        = 2
	expectedMinPlayers   = 22
	maxImpactPlayers     = 4
	defaultPlayerListMax = 500
)

type VerificationStatus string

const (
	VerificationSuccess VerificationStatus = "success"
	VerificationWarning VerificationStatus = "warning"
	VerificationNoData  VerificationStatus = "no_data"
)

// PlayerVerification is the sanity check of one match's stored players.
type PlayerVerification struct {
	MatchID int64
	Status  VerificationStatus
	Stats   match.PlayerStats
	Issues  []string
}

// PlayerService reads stored player rows back for inspection.
type PlayerService struct {
	repo   match.Repository
	logger *logging.Logger
}

func NewPlayerService(repo match.Repository, logger *logging.Logger) *PlayerService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PlayerService{repo: repo, logger: logger}
}

// Players lists stored players. A filter without any field set is refused.
func (s *PlayerService) Players(ctx context.Context, filter match.PlayerFilter) ([]match.Player, error) {
	if filter.MatchID < 0 {
		return nil, fmt.Errorf("%w: match id must be positive", ErrInvalidInput)
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown player type %q", ErrInvalidInput, filter.Role)
	}
	if filter.MatchID == 0 && filter.Team == "" && filter.Name == "" && filter.Role == "" {
		return nil, fmt.Errorf("%w: player listing needs a match, team, name or type", ErrInvalidInput)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPlayerListMax
	}

	players, err := s.repo.ListPlayers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list players match_id=%d: %w", filter.MatchID, err)
	}

	impact := 0
	for _, p := range players {
		if p.Role == match.RoleImpact {
			impact++
		}
	}
	s.logger.DebugContext(ctx, "players listed", "match_id", filter.MatchID, "team", filter.Team, "rows", len(players), "impact", impact)
	return players, nil
}

func (s *PlayerService) Stats(ctx context.Context, matchID int64) (match.PlayerStats, error) {
	if matchID < 0 {
		return match.PlayerStats{}, fmt.Errorf("%w: match id must be positive", ErrInvalidInput)
	}
	stats, err := s.repo.PlayerStats(ctx, matchID)
	if err != nil {
		return match.PlayerStats{}, fmt.Errorf("player stats match_id=%d: %w", matchID, err)
	}
	return stats, nil
}

// Verify flags a match whose players do not look like a complete two-team
// scorecard.
func (s *PlayerService) Verify(ctx context.Context, matchID int64) (PlayerVerification, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.Verify", attribute.Int64("match_id", matchID))
	var err error
	defer func() { endSpan(span, err) }()

	if matchID <= 0 {
		err = fmt.Errorf("%w: match id must be positive", ErrInvalidInput)
		return PlayerVerification{}, err
	}

	stats, err := s.Stats(ctx, matchID)
	if err != nil {
		return PlayerVerification{}, err
	}

	result := PlayerVerification{MatchID: matchID, Stats: stats}
	if stats.Total == 0 {
		result.Status = VerificationNoData
		result.Issues = []string{fmt.Sprintf("no players found for match %d", matchID)}
		return result, nil
	}

	if stats.Teams != expectedTeams {
		result.Issues = append(result.Issues, fmt.Sprintf("expected %d teams, found %d", expectedTeams, stats.Teams))
	}
	if stats.Total < expectedMinPlayers {
		result.Issues = append(result.Issues, fmt.Sprintf("only %d players (expected ~%d)", stats.Total, expectedMinPlayers))
	}
	if stats.Impact > maxImpactPlayers {
		result.Issues = append(result.Issues, fmt.Sprintf("unusual number of impact players: %d", stats.Impact))
	}

	if len(result.Issues) > 0 {
		result.Status = VerificationWarning
		s.logger.WarnContext(ctx, "player extraction issues", "match_id", matchID, "issues", strings.Join(result.Issues, ", "))
		return result, nil
	}
	result.Status = VerificationSuccess
	s.logger.InfoContext(ctx, "player extraction verified", "match_id", matchID)
	return result, nil
}
