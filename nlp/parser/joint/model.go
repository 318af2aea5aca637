package joint

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/allanj/corbit-joint/alg/transition"
	"github.com/allanj/corbit-joint/util"
	"github.com/pingcap/errors"
	"gopkg.in/yaml.v2"
)

const (
	SEP = "|"
	// MAX_AFFIX is the longest prefix/suffix used by the tagging features.
	MAX_AFFIX = 6
)

// Model is a linear scorer over string features. A feature's weight is
// looked up by its full string; absent features weigh nothing.
type Model struct {
	LookAhead bool               `yaml:"look ahead"`
	Weights   map[string]float64 `yaml:"weights"`
}

var (
	_ Scorer   = &Model{}
	_ Resolver = &Model{}
)

func NewModel(lookAhead bool) *Model {
	return &Model{LookAhead: lookAhead, Weights: make(map[string]float64)}
}

func ReadModel(r io.Reader) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	m := NewModel(false)
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, errors.Annotate(err, "parsing model")
	}
	if m.Weights == nil {
		m.Weights = make(map[string]float64)
	}
	return m, nil
}

func ReadModelFile(filename string) (*Model, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	m, err := ReadModel(file)
	return m, errors.Annotatef(err, "model file %s", filename)
}

func (m *Model) Write(w io.Writer) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Trace(err)
	}
	_, err = w.Write(data)
	return errors.Trace(err)
}

func (m *Model) Score(s *State, a transition.Action) (float64, []Delayed) {
	feats, delayed := m.Features(s, a)
	var score float64
	for _, f := range feats {
		score += m.Weights[f]
	}
	return score, delayed
}

func (m *Model) Resolve(s *State, d Delayed) float64 {
	return m.Weights[d.Feature(s.Tags)]
}

type featureSet struct {
	feats   []string
	delayed []Delayed
	suffix  string
}

func (fs *featureSet) add(parts ...string) {
	fs.feats = append(fs.feats, strings.Join(parts, SEP)+SEP+fs.suffix)
}

// addOrDelay adds the feature now, or delays it when it refers to tags of
// positions not tagged yet.
func (fs *featureSet) addOrDelay(positions []int, parts ...string) {
	if len(positions) == 0 {
		fs.add(parts...)
		return
	}
	fs.delayed = append(fs.delayed, Delayed{
		Template:  strings.Join(parts, SEP) + SEP + fs.suffix,
		Positions: positions,
	})
}

// Features returns the feature strings of applying a in s, conjoined with
// the action, and the lookahead features that have to wait for tags.
func (m *Model) Features(s *State, a transition.Action) ([]string, []Delayed) {
	at := s.Atoms()
	fs := &featureSet{feats: make([]string, 0, 64), suffix: a.String()}
	switch a.Kind {
	case transition.Shift, transition.ShiftPos, transition.ReduceLeft, transition.ReduceRight:
		m.parseFeatures(fs, s, at)
	case transition.EndState:
		fs.add("FE01", at[A_S0T])
	}
	switch a.Kind {
	case transition.ShiftPos, transition.ReduceLeft, transition.ReduceRight, transition.ReducePos:
		entityFeatures(fs, at)
	}
	if a.HasTag() {
		// tag features are shared by both ways of assigning a tag
		tagged := &featureSet{feats: fs.feats, suffix: a.Tag()}
		if a.Kind == transition.ShiftPos {
			tagFeatures(tagged, at[A_Q0W], at[A_QP1T], at[A_QP1W])
		} else {
			tagFeatures(tagged, at[A_S0W], at[A_QP2T], at[A_S1W])
		}
		fs.feats = tagged.feats
	}
	return fs.feats, fs.delayed
}

func (m *Model) parseFeatures(fs *featureSet, s *State, at *Atoms) {
	s0w, s0t, s1w, s1t := at[A_S0W], at[A_S0T], at[A_S1W], at[A_S1T]
	fs.add("FP01", s0w)
	fs.add("FP02", s0t)
	fs.add("FP03", s0w, s0t)
	fs.add("FP04", s1w)
	fs.add("FP05", s1t)
	fs.add("FP06", s1w, s1t)
	fs.add("FP07", at[A_Q0W])
	fs.add("FP10", s0w, s1w)
	fs.add("FP11", s0t, s1t)
	fs.add("FP13", s0w, s0t, s1t)
	fs.add("FP14", s0w, s0t, s1w)
	fs.add("FP15", s0w, s1w, s1t)
	fs.add("FP16", s0t, s1w, s1t)
	fs.add("FP17", s0w, s0t, s1w, s1t)

	if m.LookAhead {
		q0, q1 := at[A_Q0T], at[A_Q1T]
		var q0pos, q1pos []int
		if q0 == "" {
			q0, q0pos = DELAY_MARK, []int{s.Cursor}
		}
		if q1 == "" {
			q1, q1pos = DELAY_MARK, []int{s.Cursor + 1}
		}
		fs.addOrDelay(q0pos, "FP08", q0)
		fs.addOrDelay(q0pos, "FP09", at[A_Q0W], q0)
		fs.addOrDelay(q0pos, "FP12", s0t, q0)
		fs.addOrDelay(q0pos, "FP19", s0t, s1t, q0)
		fs.addOrDelay(q0pos, "FP21", s0w, s1t, q0)
		both := append(append([]int(nil), q0pos...), q1pos...)
		fs.addOrDelay(both, "FP18", s0t, q0, q1)
		fs.addOrDelay(both, "FP20", s0w, q0, q1)
	}

	fs.add("FP22", s0t, s1t, at[A_S1LCT])
	fs.add("FP23", s0t, s1t, at[A_S1RCT])
	fs.add("FP24", s0t, at[A_S0RCT], s1t)
	fs.add("FP25", s0t, at[A_S0LCT], s1t)
	fs.add("FP26", s0w, s1t, at[A_S1RCT])
	fs.add("FP27", s0w, s1t, at[A_S0LCT])
	fs.add("FP28", s0t, s1t, at[A_S2T])
	if at[A_ADJOIN] == "true" {
		fs.add("FP29")
		fs.add("FP30", s0t, s1t)
	}
}

func entityFeatures(fs *featureSet, at *Atoms) {
	q0w, qp1w, q1w, prev := at[A_Q0W], at[A_QP1W], at[A_Q1W], at[A_PREV_TAG]
	s0w, s0t := at[A_S0W], at[A_S0T]
	fs.add("EN01", q0w)
	fs.add("EN03", qp1w)
	fs.add("EN04", at[A_QP1T])
	fs.add("EN05", q1w)
	fs.add("EN10", prev)
	fs.add("EN11", q0w, prev)
	fs.add("EN12", qp1w, prev)
	fs.add("EN13", q1w, prev)
	fs.add("EN18", s0w)
	fs.add("EN19", s0t)
	fs.add("EN20", s0w, q0w)
	fs.add("EN21", s0t, q0w)
	fs.add("EN22", s0t, at[A_S0RCT])
	fs.add("EN23", s0t, at[A_S0LCT])
	fs.add("EN24", s0w, s0t, at[A_S0RCT])
	fs.add("EN25", s0w, s0t, at[A_S0LCT])
}

// tagFeatures describe the word being tagged, its left neighbour and the
// tag before it.
func tagFeatures(fs *featureSet, word, prevTag, prevWord string) {
	fs.add("TG01", word)
	fs.add("TG02", prevTag)
	fs.add("TG03", word, prevTag)
	fs.add("TG04", prevWord, word)
	fs.add("TG05", util.Signature(word))
	if word == OOR {
		return
	}
	length := len([]rune(word))
	for plen := 1; plen <= util.Min(MAX_AFFIX, length); plen++ {
		l := strconv.Itoa(plen)
		fs.add("TG06", l, util.Prefix(word, plen))
		fs.add("TG07", l, util.Suffix(word, plen))
	}
}
