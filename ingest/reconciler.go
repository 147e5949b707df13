// Package ingest reconciles provider odds snapshots into the entity store.
//
// A run fetches one complete snapshot, takes the feed lock, and then writes
// each event in its own transaction. Provider failures abort the run before
// anything is written; a bad event or bookmaker is logged, counted and skipped.
// Replaying an identical snapshot creates no rows.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/padraicbc/nflodds/db"
	applog "github.com/padraicbc/nflodds/logger"
	"github.com/padraicbc/nflodds/models"
	"github.com/padraicbc/nflodds/provider"
)

// Fetcher returns one full provider snapshot.
type Fetcher interface {
	Fetch(ctx context.Context) (*provider.Snapshot, error)
	Feed() string
}

// Store is the transactional entity store a run writes to.
type Store interface {
	EnsureSport(ctx context.Context, name string) (int64, error)
	InTx(ctx context.Context, fn func(ctx context.Context, r db.Repository) error) error
	LockFeed(ctx context.Context, feed string) (release func(), err error)
}

// Notifier is told about every completed run.
type Notifier interface {
	Notify(ctx context.Context, s *Summary) error
}

// Summary describes one completed run.
type Summary struct {
	RunID      string    `json:"run_id"`
	Feed       string    `json:"feed"`
	Sport      string    `json:"sport"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Events         int `json:"events"`
	Malformed      int `json:"malformed"`
	EventsIngested int `json:"events_ingested"`
	EventsSkipped  int `json:"events_skipped"`
	EventsFailed   int `json:"events_failed"`

	TeamsCreated      int `json:"teams_created"`
	MatchesCreated    int `json:"matches_created"`
	OddsInserted      int `json:"odds_inserted"`
	OddsUpdated       int `json:"odds_updated"`
	BookmakersSkipped int `json:"bookmakers_skipped"`
	PricesRejected    int `json:"prices_rejected"`
}

// writes counts one event's effects; merged into Summary only after commit.
type writes struct {
	teams, matches, inserted, updated int
}

// Options configures a Reconciler.
type Options struct {
	// SportName is the single sport this feed carries.
	SportName string
	Notifier  Notifier
	Log       *zap.Logger
	// Now stamps updated_at; defaults to time.Now.
	Now func() time.Time
}

// Reconciler merges snapshots from one feed into the store.
type Reconciler struct {
	store    Store
	fetcher  Fetcher
	sport    string
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// New builds a Reconciler.
func New(store Store, fetcher Fetcher, opts Options) *Reconciler {
	r := &Reconciler{
		store:    store,
		fetcher:  fetcher,
		sport:    opts.SportName,
		notifier: opts.Notifier,
		log:      applog.OrNop(opts.Log),
		now:      opts.Now,
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// ErrNothingStored is returned when every event that reached the store failed
// to write, which points at the store rather than the data.
var ErrNothingStored = errors.New("no event could be stored")

// Run fetches one snapshot and reconciles it. The returned error is non-nil
// when the snapshot could not be fetched, the run could not start, ctx ended,
// or no event could be written at all. Other per-event problems are reported
// in the Summary.
func (r *Reconciler) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		RunID:     uuid.NewString(),
		Feed:      r.fetcher.Feed(),
		Sport:     r.sport,
		StartedAt: r.now().UTC(),
	}
	log := r.log.With(zap.String("run_id", sum.RunID), zap.String("feed", sum.Feed))

	snap, err := r.fetcher.Fetch(ctx)
	if err != nil {
		log.Error("fetch snapshot failed", zap.Error(err))
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	sum.Events = len(snap.Events)
	sum.Malformed = snap.Malformed

	release, err := r.store.LockFeed(ctx, sum.Feed)
	if err != nil {
		return nil, fmt.Errorf("lock feed: %w", err)
	}
	defer release()

	sportID, err := r.store.EnsureSport(ctx, r.sport)
	if err != nil {
		return nil, fmt.Errorf("resolve sport: %w", err)
	}

	for i, ev := range snap.Events {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("ingestion interrupted after %d of %d events: %w", i, len(snap.Events), err)
		}
		r.reconcileEvent(ctx, log, sportID, ev, sum)
	}
	sum.FinishedAt = r.now().UTC()

	if sum.EventsFailed > 0 && sum.EventsIngested == 0 {
		log.Error("ingestion stored nothing", zap.Int("events", sum.Events), zap.Int("failed", sum.EventsFailed))
		return nil, fmt.Errorf("%w: %d of %d events failed", ErrNothingStored, sum.EventsFailed, sum.Events)
	}

	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, sum); err != nil {
			log.Warn("run notification failed", zap.Error(err))
		}
	}

	log.Info("ingestion finished",
		zap.Int("events", sum.Events),
		zap.Int("ingested", sum.EventsIngested),
		zap.Int("skipped", sum.EventsSkipped),
		zap.Int("failed", sum.EventsFailed),
		zap.Int("odds_inserted", sum.OddsInserted),
		zap.Int("odds_updated", sum.OddsUpdated),
		zap.Duration("took", sum.FinishedAt.Sub(sum.StartedAt)),
	)
	return sum, nil
}

func (r *Reconciler) reconcileEvent(ctx context.Context, log *zap.Logger, sportID int64, ev provider.Event, sum *Summary) {
	fx, err := validateEvent(ev)
	if err != nil {
		sum.EventsSkipped++
		log.Info("event skipped", zap.String("event_id", ev.ID), zap.Error(err))
		return
	}
	log = log.With(zap.String("event_id", ev.ID), zap.String("home", fx.Home), zap.String("away", fx.Away))

	for _, b := range ev.Bookmakers {
		l, err := bookLine(b, fx.Home, fx.Away)
		if err != nil {
			sum.BookmakersSkipped++
			if errors.Is(err, ErrPriceRejected) {
				sum.PricesRejected++
			}
			log.Debug("bookmaker skipped", zap.Error(err))
			continue
		}
		fx.Lines = append(fx.Lines, l)
	}

	var w writes
	err = r.store.InTx(ctx, func(ctx context.Context, repo db.Repository) error {
		w = writes{}
		return r.writeFixture(ctx, repo, sportID, fx, &w)
	})
	if err != nil {
		sum.EventsFailed++
		log.Error("event not stored", zap.Error(err))
		return
	}

	sum.EventsIngested++
	sum.TeamsCreated += w.teams
	sum.MatchesCreated += w.matches
	sum.OddsInserted += w.inserted
	sum.OddsUpdated += w.updated
}

func (r *Reconciler) writeFixture(ctx context.Context, repo db.Repository, sportID int64, fx fixture, w *writes) error {
	team1, created, err := repo.EnsureTeam(ctx, sportID, fx.Home)
	if err != nil {
		return err
	}
	if created {
		w.teams++
	}
	team2, created, err := repo.EnsureTeam(ctx, sportID, fx.Away)
	if err != nil {
		return err
	}
	if created {
		w.teams++
	}

	match, created, err := repo.EnsureMatch(ctx, &models.Match{
		SportID:   sportID,
		Team1ID:   team1.TeamID,
		Team2ID:   team2.TeamID,
		MatchDate: fx.Start,
		Location:  models.DefaultLocation,
	})
	if err != nil {
		return err
	}
	if created {
		w.matches++
	}

	updatedAt := r.now().UTC().Truncate(time.Microsecond)
	for _, l := range fx.Lines {
		inserted, err := repo.UpsertOdds(ctx, &models.BettingOdds{
			MatchID:     match.MatchID,
			SportsBooks: l.Book,
			OddsTeam1:   l.Team1,
			OddsTeam2:   l.Team2,
			UpdatedAt:   updatedAt,
		})
		if err != nil {
			return err
		}
		if inserted {
			w.inserted++
		} else {
			w.updated++
		}
	}
	return nil
}
