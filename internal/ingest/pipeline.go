package ingest

import (
	"context"
	"sort"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/pable/go-lineup-metrics/internal/errkind"
	"github.com/pable/go-lineup-metrics/internal/logging"
	"github.com/pable/go-lineup-metrics/internal/metrics"
	"github.com/pable/go-lineup-metrics/internal/model"
)

// ErrGameBusy is returned when this process is already ingesting the game.
var ErrGameBusy = errkind.New("game is being ingested by this process", errkind.Recoverable)

// Store is the part of the snapshot store the pipeline writes to.
type Store interface {
	ClaimGame(ctx context.Context, g model.Game, runID string, force bool) error
	CommitGame(ctx context.Context, facts *model.GameFacts) error
	FailGame(ctx context.Context, gameID, runID string, cause error) error
	RebuildAggregates(ctx context.Context, scope model.Scope) error
}

// Result reports the outcome of one game.
type Result struct {
	GameID      string
	RunID       string
	Events      int
	Possessions int
	Flags       int
	Duration    time.Duration
	Err         error

	claimed bool
}

// Pipeline ingests games into a Store, one owner per game.
type Pipeline struct {
	store   Store
	log     *logging.Logger
	metrics *metrics.Recorder
	force   bool
	newRun  func() string

	mu   sync.Mutex
	busy map[string]struct{}
}

type Option func(*Pipeline)

func WithLogger(l *logging.Logger) Option { return func(p *Pipeline) { p.log = l } }

func WithMetrics(m *metrics.Recorder) Option { return func(p *Pipeline) { p.metrics = m } }

// WithForce lets a run take over games left in_progress by a dead run.
func WithForce(force bool) Option { return func(p *Pipeline) { p.force = force } }

func New(store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:  store,
		log:    logging.Default(),
		newRun: uuid.NewString,
		busy:   map[string]struct{}{},
	}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.Named("ingest")
	return p
}

func (p *Pipeline) acquire(gameID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, held := p.busy[gameID]; held {
		return false
	}
	p.busy[gameID] = struct{}{}
	return true
}

func (p *Pipeline) release(gameID string) {
	p.mu.Lock()
	delete(p.busy, gameID)
	p.mu.Unlock()
}

// Ingest derives and commits one game, then rebuilds the aggregates of the
// game, its season and the all-time scope. When a claimed run fails those
// scopes are rebuilt too, so facts of an earlier run stop counting.
func (p *Pipeline) Ingest(ctx context.Context, in GameInput) Result {
	res := p.ingest(ctx, in)
	if res.Err != nil && !res.claimed {
		return res
	}
	scopes := rollupScopes(seasonOf(in))
	if res.Err != nil {
		scopes = append([]model.Scope{model.GameScope(in.GameID)}, scopes...)
		if err := p.rebuild(context.WithoutCancel(ctx), scopes...); err != nil {
			p.log.Error("rebuild after failure", "game", in.GameID, "err", err)
		}
		return res
	}
	res.Err = p.rebuild(ctx, scopes...)
	return res
}

func seasonOf(in GameInput) string {
	if len(in.Events) == 0 {
		return ""
	}
	return in.Events[0].Season
}

// rollupScopes lists the season scopes followed by the all-time scope. Games
// without a season only roll up into the all-time scope.
func rollupScopes(seasons ...string) []model.Scope {
	out := make([]model.Scope, 0, len(seasons)+1)
	for _, s := range seasons {
		if s != "" {
			out = append(out, model.SeasonScope(s))
		}
	}
	return append(out, model.AllScope())
}

// ingest runs one game through claim, derive and commit and rebuilds the
// game scope. Season and all-time scopes are left to the caller.
func (p *Pipeline) ingest(ctx context.Context, in GameInput) Result {
	start := time.Now()
	res := Result{GameID: in.GameID, Events: len(in.Events)}
	log := p.log.With("game", in.GameID)

	finish := func(status model.IngestStatus, err error) Result {
		res.Err = err
		res.Duration = time.Since(start)
		if err != nil {
			p.metrics.GameIngested(string(status), 0, 0, res.Duration)
		} else {
			p.metrics.GameIngested(string(status), res.Events, res.Possessions, res.Duration)
		}
		return res
	}

	if len(in.Events) == 0 {
		return finish(model.StatusFailed, crerr.Wrapf(ErrEmptyGame, "game %s", in.GameID))
	}
	if !p.acquire(in.GameID) {
		return finish(model.StatusFailed, crerr.Wrapf(ErrGameBusy, "game %s", in.GameID))
	}
	defer p.release(in.GameID)

	first := in.Events[0]
	res.RunID = p.newRun()
	claim := model.Game{
		GameID:     in.GameID,
		Season:     first.Season,
		HomeTeamID: first.HomeTeamID,
		AwayTeamID: first.AwayTeamID,
	}
	if err := p.store.ClaimGame(ctx, claim, res.RunID, p.force); err != nil {
		log.Warn("claim failed", "err", err)
		return finish(model.StatusFailed, err)
	}
	res.claimed = true

	fail := func(err error) Result {
		// Record the failure even when ctx is what failed.
		if ferr := p.store.FailGame(context.WithoutCancel(ctx), in.GameID, res.RunID, err); ferr != nil {
			log.Error("record failure", "err", ferr)
		}
		log.Error("ingestion failed", "run", res.RunID, "fatal", errkind.IsFatal(err), "err", err)
		return finish(model.StatusFailed, err)
	}

	facts, err := Derive(ctx, in.Events)
	if err != nil {
		return fail(err)
	}
	facts.Game.RunID = res.RunID
	res.Possessions = len(facts.Possessions)
	res.Flags = len(facts.Flags)
	for _, f := range facts.Flags {
		p.metrics.EventFlagged(f.Reason)
		log.Debug("event flagged", "seq", f.Seq, "reason", f.Reason, "kind", f.RawKind)
	}

	if err := p.store.CommitGame(ctx, facts); err != nil {
		return fail(err)
	}
	if err := p.rebuild(ctx, model.GameScope(in.GameID)); err != nil {
		return finish(model.StatusComplete, err)
	}
	log.Info("game ingested", "run", res.RunID, "events", res.Events,
		"possessions", res.Possessions, "flags", res.Flags, "elapsed", time.Since(start))
	return finish(model.StatusComplete, nil)
}

func (p *Pipeline) rebuild(ctx context.Context, scopes ...model.Scope) error {
	for _, s := range scopes {
		start := time.Now()
		if err := p.store.RebuildAggregates(ctx, s); err != nil {
			return crerr.Wrapf(err, "rebuild %s", s)
		}
		p.metrics.Rebuilt(string(s.Kind), time.Since(start))
	}
	return nil
}

// Batch ingests games concurrently on a pool of workers, one game per task.
// Season and all-time aggregates are rebuilt once after every game is done.
// Results are sorted by game id; per-game failures are reported in
// Result.Err and do not stop the batch.
func (p *Pipeline) Batch(ctx context.Context, games []GameInput, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, crerr.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	results := make([]Result, len(games))
	var wg sync.WaitGroup
	for i := range games {
		i := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				results[i] = Result{GameID: games[i].GameID, Events: len(games[i].Events), Err: err}
				return
			}
			results[i] = p.ingest(ctx, games[i])
		}); err != nil {
			wg.Done()
			results[i] = Result{GameID: games[i].GameID, Err: crerr.Wrap(err, "submit")}
		}
	}
	wg.Wait()

	sort.SliceStable(results, func(a, b int) bool { return results[a].GameID < results[b].GameID })

	seasons := make(map[string]string, len(games))
	for _, g := range games {
		seasons[g.GameID] = seasonOf(g)
	}
	touched := map[string]bool{}
	var ok int
	var scopes []model.Scope
	for _, r := range results {
		switch {
		case r.Err == nil:
			ok++
		case r.claimed:
			scopes = append(scopes, model.GameScope(r.GameID))
		default:
			continue
		}
		touched[seasons[r.GameID]] = true
	}
	if len(touched) == 0 {
		return results, nil
	}
	scopes = append(scopes, rollupScopes(sortedKeys(touched)...)...)
	if err := p.rebuild(ctx, scopes...); err != nil {
		return results, err
	}
	p.log.Info("batch done", "games", len(games), "ok", ok, "failed", len(games)-ok)
	return results, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
