package app

import (
	"context"
	"time"

	"github.com/allanj/corbit-joint/alg/transition"
	"github.com/allanj/corbit-joint/nlp/parser/joint"
	nlp "github.com/allanj/corbit-joint/nlp/types"
	"github.com/allanj/corbit-joint/util/logutil"
	"github.com/pingcap/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchStats is shared by the sentence workers of one batch.
type BatchStats struct {
	Sentences    atomic.Int64
	Skipped      atomic.Int64
	Total        atomic.Int64
	Merged       atomic.Int64
	Evaluated    atomic.Int64
	SearchErrors atomic.Int64
	Correct      atomic.Int64
}

func (b *BatchStats) add(s joint.Stats) {
	b.Sentences.Inc()
	b.Total.Add(int64(s.Total))
	b.Merged.Add(int64(s.Merged))
	b.Evaluated.Add(int64(s.Evaluated))
}

func (b *BatchStats) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("sentences", b.Sentences.Load()),
		zap.Int64("skipped", b.Skipped.Load()),
		zap.Int64("total", b.Total.Load()),
		zap.Int64("merged", b.Merged.Load()),
		zap.Int64("evaluated", b.Evaluated.Load()),
		zap.Int64("search errors", b.SearchErrors.Load()),
		zap.Int64("correct", b.Correct.Load()),
	}
}

func sentenceGroup(ctx context.Context, workers int) (*errgroup.Group, context.Context) {
	eg, ectx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	return eg, ectx
}

// DecodeCorpus parses sentences concurrently, keeping their order. A
// sentence without a parse is returned untagged and unattached.
func DecodeCorpus(ctx context.Context, d *joint.Decoder, sents []nlp.Sentence, workers int, stats *BatchStats) ([]nlp.Sentence, error) {
	log := d.Log
	if log == nil {
		log = logutil.BgLogger()
	}
	start := time.Now()
	out := make([]nlp.Sentence, len(sents))
	eg, ectx := sentenceGroup(ctx, workers)
	for i, sent := range sents {
		i, sent := i, sent
		eg.Go(func() error {
			res, err := d.Parse(ectx, sent)
			if errors.Cause(err) == joint.ErrNoParse {
				log.Warn("no parse", zap.Int("sentence", i), zap.Int("tokens", len(sent)))
				stats.Skipped.Inc()
				out[i] = sent.Strip()
				return nil
			}
			if err != nil {
				return errors.Annotatef(err, "sentence %d", i)
			}
			stats.add(res.Stats)
			out[i] = res.Sentence
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	log.Info("decoded corpus", append(stats.Fields(), zap.Duration("took", time.Since(start)))...)
	return out, nil
}

// OracleCorpus decodes gold sentences in training mode and reports, per
// sentence, whether the gold derivation survived the beam. Sentences the
// oracle cannot derive are skipped with a nil result.
func OracleCorpus(ctx context.Context, d *joint.Decoder, gold []nlp.Sentence, workers int, stats *BatchStats) ([]*joint.GoldResult, error) {
	log := d.Log
	if log == nil {
		log = logutil.BgLogger()
	}
	results := make([]*joint.GoldResult, len(gold))
	eg, ectx := sentenceGroup(ctx, workers)
	for i, sent := range gold {
		i, sent := i, sent
		eg.Go(func() error {
			res, err := d.ParseGold(ectx, sent)
			switch errors.Cause(err) {
			case nil:
			case joint.ErrNoParse, joint.ErrNotProjective, joint.ErrNotAnnotated, joint.ErrOracleStuck, transition.ErrUnknownTag:
				log.Warn("skipping gold sentence", zap.Int("sentence", i), zap.Error(err))
				stats.Skipped.Inc()
				return nil
			default:
				return errors.Annotatef(err, "sentence %d", i)
			}
			stats.add(res.Stats)
			if res.SearchError {
				stats.SearchErrors.Inc()
				log.Info("gold fell off the beam",
					zap.Int("sentence", i),
					zap.Int("position", res.EarlyUpdateAt),
					zap.Stringer("gold", res.Gold))
			}
			if res.Correct {
				stats.Correct.Inc()
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	log.Info("oracle run done", stats.Fields()...)
	return results, nil
}
