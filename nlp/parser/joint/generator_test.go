package joint

import (
	"testing"

	"github.com/allanj/corbit-joint/alg/search"
	"github.com/allanj/corbit-joint/alg/transition"
	nlp "github.com/allanj/corbit-joint/nlp/types"
	"github.com/stretchr/testify/require"
)

func mustAction(t *testing.T, vocab *transition.Vocabulary, s string) transition.Action {
	a, err := vocab.Parse(s)
	require.NoError(t, err)
	return a
}

func applyAll(t *testing.T, g *Generator, s *State, actions ...string) *State {
	for _, str := range actions {
		s = g.Apply(s, mustAction(t, g.Vocab, str), 0, nil)
	}
	return s
}

func TestInitial(t *testing.T) {
	g := NewGenerator(testVocab(), economicNews().Strip())
	s := g.Initial()
	require.Equal(t, 0, s.ID)
	require.Equal(t, -1, s.Primary)
	require.Empty(t, s.Predecessors)
	require.Equal(t, 1, s.Subsumed)
	require.False(t, s.Gold)
	require.Equal(t, transition.NOT_AVAILABLE, s.Last)
	require.Equal(t, -1, s.StackTop(0))
	require.Equal(t, []int{-1, -1, -1, -1, -1}, s.Heads)
	require.Equal(t, 1, g.Arena.Len())
}

func TestApplyShiftAndTag(t *testing.T) {
	vocab := testVocab()
	g := NewGenerator(vocab, economicNews().Strip())
	s0 := g.Initial()

	shifted := g.Apply(s0, transition.SHIFT, 1.5, nil)
	require.Equal(t, 1, shifted.Step)
	require.Equal(t, 1, shifted.Cursor)
	require.Equal(t, []int{0}, shifted.Stack)
	require.Equal(t, "", shifted.Tags[0])
	require.Equal(t, []int{s0.ID}, shifted.Predecessors)
	require.Equal(t, s0.ID, shifted.Primary)
	require.Equal(t, 1.5, shifted.PathScore)
	require.Equal(t, 1.5, shifted.SecondaryScore)
	require.Equal(t, 1, shifted.Position())

	tagged := g.Apply(shifted, mustAction(t, vocab, "R-JJ"), -0.5, nil)
	require.Equal(t, "JJ", tagged.Tags[0])
	require.Equal(t, 1, tagged.Cursor)
	require.Equal(t, 1, tagged.TagInsertions)
	require.Equal(t, 1, tagged.Stage())
	require.Equal(t, 1, tagged.Position())
	require.Equal(t, 1.0, tagged.PathScore)

	// shifting with a tag lands on the same configuration, one chart lower
	direct := g.Apply(s0, mustAction(t, vocab, "RS-JJ"), 0, nil)
	require.Equal(t, tagged.Identity(), direct.Identity())
	require.Equal(t, 0, direct.Stage())
	require.Equal(t, 1, direct.Position())

	// the predecessor is untouched
	require.Empty(t, s0.Stack)
	require.Equal(t, "", shifted.Tags[0])
}

func TestApplyReduces(t *testing.T) {
	g := NewGenerator(testVocab(), economicNews().Strip())
	s := applyAll(t, g, g.Initial(), "RS-JJ", "RS-NN")
	require.Equal(t, []int{0, 1}, s.Stack)

	left := applyAll(t, g, s, "RL")
	require.Equal(t, []int{1}, left.Stack)
	require.Equal(t, 1, left.Heads[0])

	right := applyAll(t, g, s, "RR")
	require.Equal(t, []int{0}, right.Stack)
	require.Equal(t, 0, right.Heads[1])
	require.Equal(t, nlp.NO_HEAD, s.Heads[1])
}

func TestApplyEndAndPending(t *testing.T) {
	g := NewGenerator(testVocab(), nlp.Sentence{{Token: "Yes", Head: nlp.NO_HEAD}})
	s := applyAll(t, g, g.Initial(), "RS-VB")
	idle := g.Apply(s, transition.PENDING, 0, nil)
	require.Equal(t, s.Step+1, idle.Step)
	require.Equal(t, s.Identity(), idle.Identity())

	end := g.Apply(idle, transition.END_STATE, 0, nil)
	require.True(t, end.Terminal)
	require.NotEqual(t, idle.Identity(), end.Identity())
	require.Empty(t, g.Legal(end))
}

func TestApplyContractViolations(t *testing.T) {
	vocab := testVocab()
	g := NewGenerator(vocab, economicNews().Strip())
	s0 := g.Initial()
	require.Panics(t, func() { g.Apply(s0, transition.NOT_AVAILABLE, 0, nil) })
	require.Panics(t, func() { g.Apply(s0, transition.REDUCE_LEFT, 0, nil) })
	require.Panics(t, func() { g.Apply(s0, transition.REDUCE_RIGHT, 0, nil) })
	require.Panics(t, func() { g.Apply(s0, transition.END_STATE, 0, nil) })
	require.Panics(t, func() { g.Apply(s0, mustAction(t, vocab, "R-NN"), 0, nil) })

	tagged := applyAll(t, g, s0, "RS-NN")
	require.Panics(t, func() { g.Apply(tagged, mustAction(t, vocab, "R-NN"), 0, nil) })

	one := NewGenerator(vocab, nlp.Sentence{{Token: "x", Head: nlp.NO_HEAD}})
	done := applyAll(t, one, one.Initial(), "RS-NN", "E")
	require.Panics(t, func() { one.Apply(done, transition.PENDING, 0, nil) })
	full := applyAll(t, one, one.Initial(), "S")
	require.Panics(t, func() { one.Apply(full, transition.SHIFT, 0, nil) })
}

func TestLegal(t *testing.T) {
	vocab := testVocab()
	g := NewGenerator(vocab, economicNews().Strip())
	s0 := g.Initial()
	require.Equal(t, "S RS-NN RS-VB RS-JJ", transition.Sequence(g.Legal(s0)).String())

	shifted := applyAll(t, g, s0, "S")
	require.Equal(t, "R-NN R-VB R-JJ", transition.Sequence(g.Legal(shifted)).String())

	two := applyAll(t, g, s0, "RS-JJ", "RS-NN")
	require.Equal(t, "S RS-NN RS-VB RS-JJ RL RR", transition.Sequence(g.Legal(two)).String())

	all := applyAll(t, g, s0, "RS-JJ", "RS-NN", "RS-VB", "RS-JJ", "RS-NN")
	require.Equal(t, "RL RR", transition.Sequence(g.Legal(all)).String())

	done := applyAll(t, g, all, "RL", "RR", "RL", "RL")
	require.Equal(t, "E", transition.Sequence(g.Legal(done)).String())

	empty := NewGenerator(vocab, nlp.Sentence{})
	require.Equal(t, "E", transition.Sequence(empty.Legal(empty.Initial())).String())
}

func twinStates(t *testing.T, g *Generator, first, second float64) (*State, *State) {
	s0 := g.Initial()
	a := g.Apply(applyAll(t, g, s0, "S"), mustAction(t, g.Vocab, "R-JJ"), first, nil)
	// same configuration through a different derivation
	b := g.Apply(s0, mustAction(t, g.Vocab, "RS-JJ"), second, nil)
	require.Equal(t, a.Identity(), b.Identity())
	return a, b
}

func TestMergeHigherScoreWins(t *testing.T) {
	g := NewGenerator(testVocab(), economicNews().Strip())
	a, b := twinStates(t, g, 2, 5)
	a.Predecessors = []int{10}
	b.Predecessors = []int{11}
	b.Primary = 11

	merged := g.Merge(a, b)
	require.Equal(t, 5.0, merged.PathScore)
	require.Equal(t, 11, merged.Primary)
	require.Equal(t, 2, merged.Subsumed)
	require.Equal(t, []int{11, 10}, merged.Predecessors)
	require.Equal(t, a.Identity(), merged.Identity())
	require.NotEqual(t, a.ID, merged.ID)
	require.NotEqual(t, b.ID, merged.ID)
	require.Equal(t, merged, g.Arena.Get(merged.ID))

	// inputs are left alone
	require.Equal(t, 2.0, a.PathScore)
	require.Equal(t, 1, a.Subsumed)
}

func TestMergeTieKeepsFirst(t *testing.T) {
	g := NewGenerator(testVocab(), economicNews().Strip())
	a, b := twinStates(t, g, 3, 3)
	a.Predecessors, a.Primary = []int{7}, 7
	b.Predecessors, b.Primary = []int{8}, 8
	require.Equal(t, 7, g.Merge(a, b).Primary)
	require.Equal(t, 8, g.Merge(b, a).Primary)
}

func TestMergePredecessorCap(t *testing.T) {
	g := NewGenerator(testVocab(), economicNews().Strip())
	a, b := twinStates(t, g, 1, 0)
	a.Predecessors = []int{1, 2, 3}
	b.Predecessors = []int{3, 4, 5}
	require.Equal(t, []int{1, 2, 3, 4, 5}, g.Merge(a, b).Predecessors)

	g.MaxPredecessors = 4
	require.Equal(t, []int{1, 2, 3, 4}, g.Merge(a, b).Predecessors)

	// the cap never drops below two
	g.MaxPredecessors = 1
	capped := g.Merge(a, b)
	require.Equal(t, []int{1, 2}, capped.Predecessors)
	require.Equal(t, 2, capped.Subsumed)
}

func TestMergeDifferentIdentityPanics(t *testing.T) {
	g := NewGenerator(testVocab(), economicNews().Strip())
	s0 := g.Initial()
	a := applyAll(t, g, s0, "RS-NN")
	b := applyAll(t, g, s0, "RS-VB")
	require.Panics(t, func() { g.Merge(a, b) })
}

func TestMergerInChart(t *testing.T) {
	g := NewGenerator(testVocab(), economicNews().Strip())
	a, b := twinStates(t, g, 2, 5)
	chart := search.NewChart(true, g.Merger())
	chart.InsertOrMerge(a)
	stored := chart.InsertOrMerge(b).(*State)
	require.Equal(t, 1, chart.Len())
	require.Equal(t, 5.0, stored.PathScore)
	require.Equal(t, 2, stored.Subsumed)
}

func TestGoldMarkingAndMargin(t *testing.T) {
	vocab := testVocab()
	gold := economicNews()
	o, err := NewOracle(vocab, gold)
	require.NoError(t, err)
	g := NewGenerator(vocab, gold.Strip())
	g.Oracle = o
	g.Margin = 0.5

	s0 := g.Initial()
	require.True(t, s0.Gold)
	good := g.Apply(s0, mustAction(t, vocab, "RS-JJ"), 2, nil)
	require.True(t, good.Gold)
	require.Equal(t, 2.0, good.RawScore)
	require.Equal(t, 1.5, good.PathScore)
	require.Equal(t, 2.0, good.SecondaryScore)

	bad := g.Apply(s0, mustAction(t, vocab, "RS-NN"), 2, nil)
	require.False(t, bad.Gold)
	require.Equal(t, 2.0, bad.PathScore)
	require.False(t, g.Apply(bad, mustAction(t, vocab, "RS-NN"), 0, nil).Gold)

	// a gold state merged with a better non-gold twin stays gold
	viaTag := g.Apply(g.Apply(s0, transition.SHIFT, 0, nil), mustAction(t, vocab, "R-JJ"), 4, nil)
	require.False(t, viaTag.Gold)
	merged := g.Merge(good, viaTag)
	require.True(t, merged.Gold)
	require.Equal(t, 4.0, merged.RawScore)
	require.Equal(t, 4.0, merged.PathScore)

	// the margin comes back on the successors of a gold representative
	next := g.Apply(merged, mustAction(t, vocab, "RS-NN"), 1, nil)
	require.True(t, next.Gold)
	require.Equal(t, 5.0, next.RawScore)
	require.Equal(t, 4.5, next.PathScore)
}

func TestMergeOrderIndependent(t *testing.T) {
	vocab := testVocab()
	gold := economicNews()
	o, err := NewOracle(vocab, gold)
	require.NoError(t, err)
	g := NewGenerator(vocab, gold.Strip())
	g.Oracle = o
	g.Margin = 1

	viaTag, goldTwin := twinStates(t, g, 4.8, 4.5)
	best, _ := twinStates(t, g, 5, 0)
	require.True(t, goldTwin.Gold)
	require.Equal(t, 3.5, goldTwin.PathScore)
	require.False(t, viaTag.Gold)
	require.False(t, best.Gold)

	orders := [][]*State{
		{goldTwin, best, viaTag},
		{goldTwin, viaTag, best},
		{best, goldTwin, viaTag},
		{viaTag, best, goldTwin},
	}
	for _, order := range orders {
		chart := search.NewChart(true, g.Merger())
		var stored *State
		for _, s := range order {
			stored = chart.InsertOrMerge(s).(*State)
		}
		require.Equal(t, 1, chart.Len())
		require.Equal(t, 5.0, stored.RawScore)
		require.Equal(t, 5.0, stored.PathScore)
		require.Equal(t, best.Primary, stored.Primary)
		require.Equal(t, 3, stored.Subsumed)
		require.True(t, stored.Gold)

		folded := g.Merge(g.Merge(order[0], order[1]), order[2])
		require.Equal(t, stored.Key(), folded.Key())
	}
}

func TestArenaDerivation(t *testing.T) {
	g := NewGenerator(testVocab(), economicNews().Strip())
	s := applyAll(t, g, g.Initial(), "RS-JJ", "RS-NN", "RL")
	path := g.Arena.Derivation(s)
	require.Len(t, path, 4)
	require.Equal(t, -1, path[0].Primary)
	require.Equal(t, s, path[3])
	require.Equal(t, "RS-JJ RS-NN RL", g.Arena.Actions(s).String())
	require.Panics(t, func() { g.Arena.Get(100) })
}

func TestDelayedFeature(t *testing.T) {
	d := Delayed{Template: "FP18|x|" + DELAY_MARK + "|" + DELAY_MARK + "|S", Positions: []int{0, 1}}
	require.False(t, d.Ready([]string{"NN", ""}))
	require.False(t, d.Ready([]string{"NN"}))
	require.True(t, d.Ready([]string{"NN", "VB"}))
	require.Equal(t, "FP18|x|NN|VB|S", d.Feature([]string{"NN", "VB"}))

	broken := Delayed{Template: "FP08|" + DELAY_MARK, Positions: []int{0, 1}}
	require.Panics(t, func() { broken.Feature([]string{"NN", "VB"}) })
}

type fixedResolver map[string]float64

func (f fixedResolver) Resolve(s *State, d Delayed) float64 {
	return f[d.Feature(s.Tags)]
}

func TestApplyResolvesDelayed(t *testing.T) {
	vocab := testVocab()
	g := NewGenerator(vocab, economicNews().Strip())
	g.Resolver = fixedResolver{"q0|NN": 3, "q1|VB": 10}
	s0 := g.Initial()
	delayed := []Delayed{
		{Template: "q0|" + DELAY_MARK, Positions: []int{0}},
		{Template: "q1|" + DELAY_MARK, Positions: []int{1}},
	}
	s1 := g.Apply(s0, mustAction(t, vocab, "RS-NN"), 1, delayed)
	require.Equal(t, 4.0, s1.RawScore)
	require.Equal(t, 1.0, s1.SecondaryScore)
	require.Len(t, s1.Delayed, 1)

	s2 := g.Apply(s1, transition.SHIFT, 0, nil)
	require.Len(t, s2.Delayed, 1)
	require.Equal(t, 4.0, s2.RawScore)

	s3 := g.Apply(s2, mustAction(t, vocab, "R-VB"), 0, nil)
	require.Empty(t, s3.Delayed)
	require.Equal(t, 14.0, s3.RawScore)
	require.Equal(t, 14.0, s3.PathScore)
}
