package joint

import (
	"fmt"
	"strings"

	"github.com/allanj/corbit-joint/alg/search"
	"github.com/allanj/corbit-joint/alg/transition"
	nlp "github.com/allanj/corbit-joint/nlp/types"
	"github.com/allanj/corbit-joint/util"
)

// DELAY_MARK stands in a delayed feature template for a tag not known yet.
const DELAY_MARK = "\x1f"

// Delayed is a feature whose string depends on the tags of input positions
// that were not tagged when it was generated. The i-th DELAY_MARK of
// Template is replaced by the tag of Positions[i].
type Delayed struct {
	Template  string
	Positions []int
}

// Ready is true once every position the feature waits on is tagged.
func (d Delayed) Ready(tags []string) bool {
	for _, pos := range d.Positions {
		if pos < 0 || pos >= len(tags) || tags[pos] == "" {
			return false
		}
	}
	return true
}

// Feature renders the feature string with the now known tags.
func (d Delayed) Feature(tags []string) string {
	parts := strings.SplitN(d.Template, DELAY_MARK, len(d.Positions)+1)
	if len(parts) != len(d.Positions)+1 {
		panic(fmt.Sprintf("Delayed feature %q has %d marks for %d positions", d.Template, len(parts)-1, len(d.Positions)))
	}
	var sb strings.Builder
	for i, part := range parts {
		sb.WriteString(part)
		if i < len(d.Positions) {
			sb.WriteString(tags[d.Positions[i]])
		}
	}
	return sb.String()
}

// Scorer is the external scoring oracle: the score increment of applying
// a in s, plus features to evaluate once the tags they need are known.
// It is called concurrently.
type Scorer interface {
	Score(s *State, a transition.Action) (float64, []Delayed)
}

// Resolver scores a delayed feature once it is ready.
type Resolver interface {
	Resolve(s *State, d Delayed) float64
}

const MIN_PREDECESSORS = 2

// Generator builds the states of one sentence.
type Generator struct {
	Vocab    *transition.Vocabulary
	Sentence nlp.Sentence
	Arena    *Arena
	Resolver Resolver
	// Oracle marks gold states; a non-nil oracle puts the generator in
	// training mode, where gold states pay Margin.
	Oracle *Oracle
	Margin float64
	// MaxPredecessors caps the predecessor list of merged states, 0 keeps
	// all of them.
	MaxPredecessors int
}

func NewGenerator(vocab *transition.Vocabulary, sent nlp.Sentence) *Generator {
	return &Generator{
		Vocab:    vocab,
		Sentence: sent,
		Arena:    NewArena(4 * (len(sent) + 1)),
	}
}

func (g *Generator) Training() bool {
	return g.Oracle != nil
}

// Initial builds and stores the start state: empty stack, nothing
// consumed. It is gold in training mode.
func (g *Generator) Initial() *State {
	n := len(g.Sentence)
	s := &State{
		Heads:    make([]int, n),
		Tags:     make([]string, n),
		Primary:  -1,
		Subsumed: 1,
		Gold:     g.Training(),
		Last:     transition.NOT_AVAILABLE,
		sent:     g.Sentence,
		cache:    &atomCache{},
	}
	for i := range s.Heads {
		s.Heads[i] = nlp.NO_HEAD
	}
	s.computeIdentity()
	g.Arena.Add(s)
	return s
}

// Legal lists the actions applicable to s. A freshly shifted untagged
// token must be tagged before anything else happens.
func (g *Generator) Legal(s *State) []transition.Action {
	if s.Terminal {
		return nil
	}
	if st0 := s.StackTop(0); st0 >= 0 && s.Tags[st0] == "" {
		return g.Vocab.ReduceActions()
	}
	n := len(s.sent)
	actions := make([]transition.Action, 0, 3+len(g.Vocab.ShiftActions()))
	if s.Cursor < n {
		actions = append(actions, transition.SHIFT)
		actions = append(actions, g.Vocab.ShiftActions()...)
	}
	if len(s.Stack) >= 2 {
		actions = append(actions, transition.REDUCE_LEFT, transition.REDUCE_RIGHT)
	}
	if s.Cursor == n && len(s.Stack) <= 1 {
		actions = append(actions, transition.END_STATE)
	}
	return actions
}

func (g *Generator) successor(s *State) *State {
	next := &State{
		Step:          s.Step + 1,
		TagInsertions: s.TagInsertions,
		Stack:         append(make([]int, 0, len(s.Stack)+1), s.Stack...),
		Cursor:        s.Cursor,
		Heads:         append([]int(nil), s.Heads...),
		Tags:          append([]string(nil), s.Tags...),
		Predecessors:  []int{s.ID},
		Primary:       s.ID,
		Subsumed:      s.Subsumed,
		sent:          s.sent,
		cache:         &atomCache{},
	}
	return next
}

// Apply builds the successor of s under a with the externally supplied
// score and delayed features, and stores it in the arena.
func (g *Generator) Apply(s *State, a transition.Action, score float64, delayed []Delayed) *State {
	if s.Terminal {
		panic(fmt.Sprintf("Can't apply %v to terminal state %v", a, s))
	}
	next := g.successor(s)
	next.Last = a
	n := len(s.sent)
	switch a.Kind {
	case transition.Shift, transition.ShiftPos:
		if s.Cursor >= n {
			panic(fmt.Sprintf("Can't %v, queue is empty: %v", a, s))
		}
		next.Stack = append(next.Stack, s.Cursor)
		if a.Kind == transition.ShiftPos {
			next.Tags[s.Cursor] = a.Tag()
		}
		next.Cursor++
	case transition.ReducePos:
		st0 := s.StackTop(0)
		if st0 < 0 || s.Tags[st0] != "" {
			panic(fmt.Sprintf("Can't %v, no untagged stack top: %v", a, s))
		}
		next.Tags[st0] = a.Tag()
		next.TagInsertions++
	case transition.ReduceLeft:
		if len(s.Stack) < 2 {
			panic(fmt.Sprintf("Can't RL, stack has %d items: %v", len(s.Stack), s))
		}
		st0, st1 := s.StackTop(0), s.StackTop(1)
		next.Heads[st1] = st0
		next.Stack = append(next.Stack[:len(next.Stack)-2], st0)
	case transition.ReduceRight:
		if len(s.Stack) < 2 {
			panic(fmt.Sprintf("Can't RR, stack has %d items: %v", len(s.Stack), s))
		}
		next.Heads[s.StackTop(0)] = s.StackTop(1)
		next.Stack = next.Stack[:len(next.Stack)-1]
	case transition.EndState:
		if s.Cursor != n || len(s.Stack) > 1 {
			panic(fmt.Sprintf("Can't end, parse is incomplete: %v", s))
		}
		next.Terminal = true
	case transition.Pending:
	default:
		panic(fmt.Sprintf("Can't apply %v", a))
	}

	next.Gold = s.Gold && g.Training() && g.Oracle.Next(s) == a

	var resolved float64
	if len(s.Delayed)+len(delayed) > 0 {
		pending := make([]Delayed, 0, len(s.Delayed)+len(delayed))
		for _, l := range [][]Delayed{s.Delayed, delayed} {
			for _, d := range l {
				if !d.Ready(next.Tags) {
					pending = append(pending, d)
					continue
				}
				if g.Resolver != nil {
					resolved += g.Resolver.Resolve(next, d)
				}
			}
		}
		if len(pending) > 0 {
			next.Delayed = pending
		}
	}

	next.RawScore = s.RawScore + score + resolved
	next.SecondaryScore = s.SecondaryScore + score
	next.PathScore = g.pathScore(next.RawScore, next.Gold)

	next.computeIdentity()
	g.Arena.Add(next)
	return next
}

func (g *Generator) pathScore(raw float64, gold bool) float64 {
	if gold && g.Training() {
		return raw - g.Margin
	}
	return raw
}

// Merge folds two states of identical identity into a new representative.
// Scores and the primary predecessor come from the higher ranked state, a
// on ties. The representative keeps the winner's key, so folding a set of
// equivalent states gives the same result in any order.
func (g *Generator) Merge(a, b *State) *State {
	if a.identity != b.identity {
		panic(fmt.Sprintf("Can't merge states of different identity: %v and %v", a, b))
	}
	winner := a
	if a.Key().Less(b.Key()) {
		winner = b
	}
	limit := len(a.Predecessors) + len(b.Predecessors)
	if g.MaxPredecessors > 0 {
		limit = util.Min(limit, util.Max(g.MaxPredecessors, MIN_PREDECESSORS))
	}
	preds := make([]int, 0, limit)
	seen := make(map[int]bool, limit)
	for _, l := range [][]int{winner.Predecessors, a.Predecessors, b.Predecessors} {
		for _, p := range l {
			if len(preds) == limit {
				break
			}
			if !seen[p] {
				seen[p] = true
				preds = append(preds, p)
			}
		}
	}
	merged := &State{
		Step:           winner.Step,
		TagInsertions:  winner.TagInsertions,
		Stack:          winner.Stack,
		Cursor:         winner.Cursor,
		Heads:          winner.Heads,
		Tags:           winner.Tags,
		Predecessors:   preds,
		Primary:        winner.Primary,
		PathScore:      winner.PathScore,
		RawScore:       winner.RawScore,
		SecondaryScore: winner.SecondaryScore,
		Subsumed:       a.Subsumed + b.Subsumed,
		Gold:           a.Gold || b.Gold,
		Terminal:       winner.Terminal,
		Last:           winner.Last,
		Delayed:        winner.Delayed,
		sent:           winner.sent,
		identity:       winner.identity,
		cache:          winner.cache,
	}
	g.Arena.Add(merged)
	return merged
}

// Merger adapts Merge to the chart.
func (g *Generator) Merger() search.MergeFunc {
	return func(existing, incoming search.Hypothesis) search.Hypothesis {
		return g.Merge(existing.(*State), incoming.(*State))
	}
}
