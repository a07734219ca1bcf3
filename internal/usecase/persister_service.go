package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	"github.com/riskibarqy/cricket-ingest/internal/platform/logging"
	"github.com/riskibarqy/cricket-ingest/internal/platform/metrics"
)

type PersisterConfig struct {
	// MaxFailureRatio is the share of failed event and player rows above
	// which the whole match is rolled back.
	MaxFailureRatio float64
	Logger          *logging.Logger
}

// Persister writes one match's record set as a single unit.
type Persister struct {
	repo     match.Repository
	validate *validator.Validate
	maxRatio float64
	logger   *logging.Logger
}

func NewPersister(repo match.Repository, cfg PersisterConfig) *Persister {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	ratio := cfg.MaxFailureRatio
	if ratio < 0 || ratio > 1 {
		ratio = 0.1
	}
	return &Persister{
		repo:     repo,
		validate: validator.New(),
		maxRatio: ratio,
		logger:   logger,
	}
}

func (p *Persister) Persist(ctx context.Context, set match.RecordSet) (match.WriteStats, error) {
	matchID := set.MatchID()
	ctx, span := startUsecaseSpan(ctx, "usecase.Persister.Persist", attribute.Int64("match_id", matchID))
	var err error
	defer func() { endSpan(span, err) }()

	if err = p.validate.Struct(set.Metadata); err != nil {
		err = &PersistError{MatchID: matchID, Reason: "invalid metadata", Err: err}
		return match.WriteStats{}, err
	}

	events, rejectedEvents := p.acceptEvents(ctx, matchID, set.Events)
	players, rejectedPlayers := p.acceptPlayers(ctx, matchID, set.Players)
	clean := match.RecordSet{Metadata: set.Metadata, Events: events, Players: players}

	guard := func(stats match.WriteStats) error {
		failed := stats.EventsFailed + stats.PlayersFailed + rejectedEvents + rejectedPlayers
		total := stats.EventsTotal + stats.PlayersTotal + rejectedEvents + rejectedPlayers
		if total == 0 {
			return nil
		}
		ratio := float64(failed) / float64(total)
		if ratio > p.maxRatio {
			return &PersistError{
				MatchID: matchID,
				Reason:  fmt.Sprintf("row failure ratio %.3f exceeds %.3f (%d of %d rows)", ratio, p.maxRatio, failed, total),
			}
		}
		return nil
	}

	stats, err := p.repo.WriteMatch(ctx, clean, guard)
	if err != nil {
		var persistErr *PersistError
		if !errors.As(err, &persistErr) && !IsStoreUnavailable(err) {
			err = &PersistError{MatchID: matchID, Reason: "write match", Err: err}
		}
		return match.WriteStats{}, err
	}

	stats.EventsFailed += rejectedEvents
	stats.EventsTotal += rejectedEvents
	stats.PlayersFailed += rejectedPlayers
	stats.PlayersTotal += rejectedPlayers

	metrics.Rows.WithLabelValues("match_events", "inserted").Add(float64(stats.EventsInserted))
	metrics.Rows.WithLabelValues("match_events", "failed").Add(float64(stats.EventsFailed))
	metrics.Rows.WithLabelValues("match_players", "inserted").Add(float64(stats.PlayersInserted))
	metrics.Rows.WithLabelValues("match_players", "failed").Add(float64(stats.PlayersFailed))
	if stats.MetadataInserted {
		metrics.Rows.WithLabelValues("match_metadata", "inserted").Inc()
	}

	if stats.EventsFailed > 0 || stats.PlayersFailed > 0 {
		p.logger.WarnContext(ctx, "rows skipped while persisting match",
			"match_id", matchID,
			"events_failed", stats.EventsFailed,
			"players_failed", stats.PlayersFailed,
		)
	}
	return stats, nil
}

// acceptEvents drops invalid rows and repeats of an event key.
func (p *Persister) acceptEvents(ctx context.Context, matchID int64, in []match.Event) ([]match.Event, int) {
	out := make([]match.Event, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	rejected := 0
	for _, ev := range in {
		if ev.MatchID != matchID {
			rejected++
			continue
		}
		if err := p.validate.Struct(ev); err != nil {
			rejected++
			p.logger.WarnContext(ctx, "event rejected", "match_id", matchID, "innings", ev.Innings, "sequence", ev.Sequence, "error", err)
			continue
		}
		key := ev.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ev)
	}
	return out, rejected
}

func (p *Persister) acceptPlayers(ctx context.Context, matchID int64, in []match.Player) ([]match.Player, int) {
	valid := make([]match.Player, 0, len(in))
	rejected := 0
	for _, pl := range in {
		if pl.MatchID != matchID || pl.Role.InningsScoped() != (pl.Innings != nil) {
			rejected++
			continue
		}
		if err := p.validate.Struct(pl); err != nil {
			rejected++
			p.logger.WarnContext(ctx, "player rejected", "match_id", matchID, "name", pl.Name, "error", err)
			continue
		}
		valid = append(valid, pl)
	}
	return match.DedupePlayers(valid), rejected
}

// Purge deletes every stored row of a match.
func (p *Persister) Purge(ctx context.Context, matchID int64) error {
	if err := p.repo.DeleteMatch(ctx, matchID); err != nil {
		return fmt.Errorf("delete match rows match_id=%d: %w", matchID, err)
	}
	return nil
}
