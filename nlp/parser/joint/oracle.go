package joint

import (
	"github.com/allanj/corbit-joint/alg/transition"
	nlp "github.com/allanj/corbit-joint/nlp/types"
	"github.com/pingcap/errors"
)

var (
	ErrNotProjective = errors.New("gold tree is not projective")
	ErrNotAnnotated  = errors.New("gold sentence is missing tags")
	ErrOracleStuck   = errors.New("oracle has no gold action")
)

// Oracle is the static arc-standard oracle extended with tagging: gold
// tokens are shifted with their gold tag, and a reduce is taken as soon as
// the dependent has collected all of its gold children.
type Oracle struct {
	gold     nlp.Sentence
	children []int
	shift    []transition.Action
}

func NewOracle(vocab *transition.Vocabulary, gold nlp.Sentence) (*Oracle, error) {
	if !gold.Annotated() {
		return nil, errors.Trace(ErrNotAnnotated)
	}
	if !gold.Projective() {
		return nil, errors.Trace(ErrNotProjective)
	}
	o := &Oracle{
		gold:     gold,
		children: make([]int, len(gold)),
		shift:    make([]transition.Action, len(gold)),
	}
	for i, token := range gold {
		if token.Head >= 0 {
			o.children[token.Head]++
		}
		a, err := vocab.ShiftWithTag(token.POS)
		if err != nil {
			return nil, errors.Annotatef(err, "token %d", i)
		}
		o.shift[i] = a
	}
	return o, nil
}

func (o *Oracle) complete(s *State, node int) bool {
	attached := 0
	for _, head := range s.Heads {
		if head == node {
			attached++
		}
	}
	return attached == o.children[node]
}

// Next is the gold action for s, NOT_AVAILABLE when s is off the gold
// derivation in a way the oracle cannot recover from or already terminal.
func (o *Oracle) Next(s *State) transition.Action {
	if s.Terminal {
		return transition.NOT_AVAILABLE
	}
	st0, st1 := s.StackTop(0), s.StackTop(1)
	if st0 >= 0 && s.Tags[st0] == "" {
		return transition.NOT_AVAILABLE
	}
	if st1 >= 0 {
		if o.gold[st1].Head == st0 && o.complete(s, st1) {
			return transition.REDUCE_LEFT
		}
		if o.gold[st0].Head == st1 && o.complete(s, st0) {
			return transition.REDUCE_RIGHT
		}
	}
	n := len(o.gold)
	if s.Cursor < n {
		return o.shift[s.Cursor]
	}
	if len(s.Stack) <= 1 {
		return transition.END_STATE
	}
	return transition.NOT_AVAILABLE
}

// Sequence runs the oracle from the initial state of g and returns the
// gold action sequence.
func (o *Oracle) Sequence(g *Generator) (transition.Sequence, error) {
	var seq transition.Sequence
	s := g.Initial()
	for !s.Terminal {
		a := o.Next(s)
		if a == transition.NOT_AVAILABLE {
			return seq, errors.Annotatef(ErrOracleStuck, "after %v", seq)
		}
		seq = append(seq, a)
		s = g.Apply(s, a, 0, nil)
	}
	return seq, nil
}
