package joint

import (
	"context"
	"fmt"

	"github.com/allanj/corbit-joint/alg/search"
	"github.com/allanj/corbit-joint/alg/transition"
	nlp "github.com/allanj/corbit-joint/nlp/types"
	"github.com/allanj/corbit-joint/util/conf"
	"github.com/allanj/corbit-joint/util/logutil"
	"github.com/pingcap/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoParse is returned when every hypothesis was pruned or no terminal
// state was reached.
var ErrNoParse = errors.New("no parse")

// Phase is the state of the chart group being decoded.
type Phase byte

const (
	PhaseInitial Phase = iota
	PhaseExpanding
	PhasePruned
	PhaseTerminal
)

var phaseNames = [...]string{"Initial", "Expanding", "Pruned", "Terminal"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", byte(p))
}

// CanAdvance reports whether to is a valid successor phase of p.
func (p Phase) CanAdvance(to Phase) bool {
	switch p {
	case PhaseInitial:
		return to == PhaseExpanding
	case PhaseExpanding:
		return to == PhasePruned
	case PhasePruned:
		return to == PhaseInitial || to == PhaseTerminal
	}
	return false
}

func (p *Phase) advance(to Phase) {
	if !p.CanAdvance(to) {
		panic(fmt.Sprintf("Invalid decoding phase transition %v -> %v", *p, to))
	}
	*p = to
}

// Stats sums the chart counters of one decode.
type Stats struct {
	Stages    int
	Total     int
	Merged    int
	Evaluated int
	States    int
}

func (s *Stats) addChart(c *search.Chart) {
	s.Total += c.TotalStates()
	s.Merged += c.MergedStates()
	s.Evaluated += c.EvaluatedStates()
}

type Result struct {
	// Sentence holds the input tokens with predicted tags and heads.
	Sentence nlp.Sentence
	Actions  transition.Sequence
	Score    float64
	Best     *State
	Stats    Stats
}

type GoldResult struct {
	Result
	Gold transition.Sequence
	// SearchError is set when no gold state survived pruning; decoding
	// stops there and EarlyUpdateAt is the chart group it happened at.
	SearchError   bool
	EarlyUpdateAt int
	// Correct is true when the best terminal state is the gold one.
	Correct bool
}

// Decoder runs the merging beam search over one sentence at a time. It
// holds no per-sentence state and may be shared by concurrent callers.
type Decoder struct {
	Vocab    *transition.Vocabulary
	Scorer   Scorer
	Resolver Resolver

	BeamSize        int
	DP              bool
	Ties            search.TiePolicy
	Margin          float64
	Concurrent      bool
	Workers         int
	MaxPredecessors int

	Log *zap.Logger
}

func NewDecoder(vocab *transition.Vocabulary, model *Model, c *conf.Config) *Decoder {
	d := &Decoder{
		Vocab:           vocab,
		Scorer:          model,
		Resolver:        model,
		BeamSize:        c.Beam,
		DP:              c.DP,
		Margin:          c.Margin,
		Concurrent:      c.Concurrent,
		Workers:         c.Workers,
		MaxPredecessors: c.MaxPredecessors,
	}
	if c.Ties == conf.TIES_KEEP {
		d.Ties = search.KeepTies
	}
	return d
}

func (d *Decoder) logger() *zap.Logger {
	if d.Log != nil {
		return d.Log
	}
	return logutil.BgLogger()
}

// Parse tags and parses sent. Gold annotations in sent are ignored.
func (d *Decoder) Parse(ctx context.Context, sent nlp.Sentence) (*Result, error) {
	run := d.newRun(sent, nil)
	if err := run.decode(ctx); err != nil {
		return nil, err
	}
	return run.result(), nil
}

// ParseGold decodes an annotated sentence in training mode, tracking
// whether the gold derivation survives the beam.
func (d *Decoder) ParseGold(ctx context.Context, gold nlp.Sentence) (*GoldResult, error) {
	oracle, err := NewOracle(d.Vocab, gold)
	if err != nil {
		return nil, err
	}
	goldSeq, err := oracle.Sequence(NewGenerator(d.Vocab, gold))
	if err != nil {
		return nil, err
	}
	run := d.newRun(gold, oracle)
	if err := run.decode(ctx); err != nil {
		return nil, err
	}
	res := &GoldResult{
		Result:        *run.result(),
		Gold:          goldSeq,
		SearchError:   run.searchError,
		EarlyUpdateAt: run.earlyUpdateAt,
	}
	res.Correct = !res.SearchError && res.Best.Gold && res.Best.Terminal
	return res, nil
}

type run struct {
	*Decoder
	gen    *Generator
	groups [][]*search.Chart
	last   int
	phase  Phase
	best   *State

	searchError   bool
	earlyUpdateAt int
	stages        int
}

func (d *Decoder) newRun(sent nlp.Sentence, oracle *Oracle) *run {
	gen := NewGenerator(d.Vocab, sent.Strip())
	gen.Resolver = d.Resolver
	gen.Oracle = oracle
	gen.Margin = d.Margin
	gen.MaxPredecessors = d.MaxPredecessors
	// every terminal state is at input position 2n
	last := 2 * len(sent)
	if last == 0 {
		last = 1
	}
	return &run{Decoder: d, gen: gen, last: last}
}

func (r *run) newChart() *search.Chart {
	c := search.NewChart(r.DP, r.gen.Merger())
	c.Ties = r.Ties
	return c
}

// chart returns chart j of group p, creating missing ones.
func (r *run) chart(p, j int) *search.Chart {
	for len(r.groups) <= p {
		r.groups = append(r.groups, nil)
	}
	for len(r.groups[p]) <= j {
		r.groups[p] = append(r.groups[p], r.newChart())
	}
	return r.groups[p][j]
}

func (r *run) decode(ctx context.Context) error {
	log := r.logger()
	r.chart(0, 0).InsertOrMerge(r.gen.Initial())
	for p := 0; ; p++ {
		if p >= r.last {
			panic(fmt.Sprintf("Decoding passed the last input position %d", r.last))
		}
		if err := ctx.Err(); err != nil {
			return errors.Trace(err)
		}
		r.phase.advance(PhaseExpanding)
		for j := 0; j < len(r.groups[p]); j++ {
			src := r.groups[p][j]
			if j > 0 {
				src.Prune(r.BeamSize)
			}
			if src.Len() == 0 {
				continue
			}
			if err := r.expand(ctx, src, r.chart(p, j+1), r.chart(p+1, j)); err != nil {
				return err
			}
		}
		r.phase.advance(PhasePruned)
		r.chart(p+1, 0)
		// the group is pooled once, when its position is reached; charts its
		// tag insertions open later are pruned one at a time above
		best := search.HorizontalPrune(r.groups[p+1], r.BeamSize)
		r.stages++
		if best == nil {
			log.Debug("all hypotheses pruned", zap.Int("position", p+1))
			return errors.Trace(ErrNoParse)
		}
		r.best = best.(*State)
		if search.ChartOut {
			log.Debug("position done",
				zap.Int("position", p+1),
				zap.Int("charts", len(r.groups[p+1])),
				zap.Float64("best", r.best.PathScore),
				zap.Int("states", r.gen.Arena.Len()))
		}
		if r.gen.Training() && !r.groupContainsGold(p+1) {
			r.searchError = true
			r.earlyUpdateAt = p + 1
			r.phase.advance(PhaseTerminal)
			return nil
		}
		if r.groupTerminal(p + 1) {
			r.phase.advance(PhaseTerminal)
			return nil
		}
		r.phase.advance(PhaseInitial)
	}
}

// expand scores and applies every legal action of every state in src,
// inserting tag insertions into same and the rest into next.
func (r *run) expand(ctx context.Context, src, same, next *search.Chart) error {
	eg, ectx := errgroup.WithContext(ctx)
	if !r.Concurrent {
		eg.SetLimit(1)
	} else if r.Workers > 0 {
		eg.SetLimit(r.Workers)
	}
	for _, h := range src.Entries() {
		s := h.(*State)
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return errors.Trace(err)
			}
			for _, a := range r.gen.Legal(s) {
				score, delayed := r.Scorer.Score(s, a)
				succ := r.gen.Apply(s, a, score, delayed)
				if a.InsertsTag() {
					same.InsertOrMerge(succ)
				} else {
					next.InsertOrMerge(succ)
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

func (r *run) groupContainsGold(p int) bool {
	for _, c := range r.groups[p] {
		if c.ContainsGold() {
			return true
		}
	}
	return false
}

// groupTerminal is true when group p is non-empty and holds terminal
// states only.
func (r *run) groupTerminal(p int) bool {
	found := false
	for _, c := range r.groups[p] {
		for _, h := range c.Entries() {
			if !h.(*State).Terminal {
				return false
			}
			found = true
		}
	}
	return found
}

func (r *run) stats() Stats {
	stats := Stats{Stages: r.stages, States: r.gen.Arena.Len()}
	for _, group := range r.groups {
		for _, c := range group {
			stats.addChart(c)
		}
	}
	return stats
}

func (r *run) result() *Result {
	best := r.best
	res := &Result{
		Best:    best,
		Actions: r.gen.Arena.Actions(best),
		Score:   best.PathScore,
		Stats:   r.stats(),
	}
	res.Sentence = make(nlp.Sentence, len(r.gen.Sentence))
	for i, token := range r.gen.Sentence {
		res.Sentence[i] = nlp.TaggedToken{Token: token.Token, POS: best.Tags[i], Head: best.Heads[i]}
	}
	r.logger().Debug("decoded",
		zap.Int("tokens", len(res.Sentence)),
		zap.Stringer("actions", res.Actions),
		zap.Int("evaluated", res.Stats.Evaluated),
		zap.Int("merged", res.Stats.Merged))
	return res
}
