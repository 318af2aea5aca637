package eval

import (
	"fmt"
	"sort"
	"strings"

	nlp "github.com/allanj/corbit-joint/nlp/types"
	"github.com/pingcap/errors"
)

var ErrLengthMismatch = errors.New("test and gold sentences differ in length")

func Precision(truePositives, testPositives int) float64 {
	if testPositives == 0 {
		return 0
	}
	return float64(truePositives) / float64(testPositives)
}

func Recall(truePositives, conditionPositives int) float64 {
	if conditionPositives == 0 {
		return 0
	}
	return float64(truePositives) / float64(conditionPositives)
}

func F1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2.0 * (precision * recall) / (precision + recall)
}

type Error interface {
	String() string
	Class() string
}

type Errors []Error

func (ers Errors) ByType() map[string]int {
	retval := make(map[string]int)
	for _, e := range ers {
		retval[e.Class()]++
	}
	return retval
}

// TagError is a token whose predicted tag differs from gold.
type TagError struct {
	Index      int
	Token      string
	Test, Gold string
}

func (e *TagError) String() string {
	return fmt.Sprintf("%d %s: tagged %s, gold %s", e.Index, e.Token, e.Test, e.Gold)
}

func (e *TagError) Class() string {
	return e.Gold + "->" + e.Test
}

// HeadError is a token attached to the wrong head.
type HeadError struct {
	Index      int
	Token      string
	Test, Gold int
}

func (e *HeadError) String() string {
	return fmt.Sprintf("%d %s: head %d, gold %d", e.Index, e.Token, e.Test, e.Gold)
}

func (e *HeadError) Class() string {
	if e.Gold == nlp.NO_HEAD {
		return "root"
	}
	if e.Test == nlp.NO_HEAD {
		return "unattached"
	}
	return "attachment"
}

type Result struct {
	TP, FP, TN, FN int
	Errors         Errors
}

func (r *Result) All() int {
	return r.TP + r.FP + r.TN + r.FN
}

func (r *Result) Correct() int {
	return r.TP + r.TN
}

func (r *Result) Incorrect() int {
	return r.FP + r.FN
}

func (r *Result) TestPositives() int {
	return r.TP + r.FP
}

func (r *Result) ConditionPositives() int {
	return r.TP + r.FN
}

func (r *Result) Precision() float64 {
	return Precision(r.TP, r.TestPositives())
}

func (r *Result) Recall() float64 {
	return Recall(r.TP, r.ConditionPositives())
}

func (r *Result) Accuracy() float64 {
	if r.All() == 0 {
		return 0
	}
	return float64(r.Correct()) / float64(r.All())
}

func (r *Result) F1() float64 {
	return F1(r.Precision(), r.Recall())
}

// Tags scores the tags of test against gold, token by token.
func Tags(test, gold nlp.Sentence) (*Result, error) {
	if len(test) != len(gold) {
		return nil, errors.Annotatef(ErrLengthMismatch, "%d vs %d tokens", len(test), len(gold))
	}
	r := &Result{}
	for i, token := range test {
		if token.POS == gold[i].POS {
			r.TP++
			continue
		}
		r.FP++
		r.Errors = append(r.Errors, &TagError{i, gold[i].Token, token.POS, gold[i].POS})
	}
	return r, nil
}

// Heads scores unlabeled attachment; the precision of the result is the
// attachment score.
func Heads(test, gold nlp.Sentence) (*Result, error) {
	if len(test) != len(gold) {
		return nil, errors.Annotatef(ErrLengthMismatch, "%d vs %d tokens", len(test), len(gold))
	}
	r := &Result{}
	for i, token := range test {
		if token.Head == gold[i].Head {
			r.TP++
			continue
		}
		r.FP++
		r.Errors = append(r.Errors, &HeadError{i, gold[i].Token, token.Head, gold[i].Head})
	}
	return r, nil
}

type Total struct {
	Result
	Results           []*Result
	Exact, Population int
}

func (t *Total) Add(r *Result) {
	t.TP += r.TP
	t.FP += r.FP
	t.TN += r.TN
	t.FN += r.FN
	if r.Incorrect() == 0 {
		t.Exact += 1
	}
	t.Population += 1
	if t.Results != nil {
		t.Results = append(t.Results, r)
	}
}

func (t *Total) ExactMatch() float64 {
	if t.Population == 0 {
		return 0
	}
	return float64(t.Exact) / float64(t.Population)
}

func (t *Total) Errors() Errors {
	retval := make(Errors, 0, t.Incorrect())
	for _, v := range t.Results {
		if v.Errors != nil {
			retval = append(retval, v.Errors...)
		}
	}
	return retval
}

// Report accumulates joint tagging and parsing scores over a corpus.
type Report struct {
	Tags, Heads Total
	// Joint counts sentences with every tag and head correct.
	Joint int
}

func NewReport(keepResults bool) *Report {
	r := &Report{}
	if keepResults {
		r.Tags.Results = make([]*Result, 0)
		r.Heads.Results = make([]*Result, 0)
	}
	return r
}

func (r *Report) Add(test, gold nlp.Sentence) error {
	tags, err := Tags(test, gold)
	if err != nil {
		return err
	}
	heads, err := Heads(test, gold)
	if err != nil {
		return err
	}
	r.Tags.Add(tags)
	r.Heads.Add(heads)
	if tags.Incorrect() == 0 && heads.Incorrect() == 0 {
		r.Joint++
	}
	return nil
}

func (r *Report) JointExactMatch() float64 {
	if r.Tags.Population == 0 {
		return 0
	}
	return float64(r.Joint) / float64(r.Tags.Population)
}

func (r *Report) String() string {
	return fmt.Sprintf("sentences %d, tag accuracy %.4f, UAS %.4f, UEM %.4f, joint EM %.4f",
		r.Tags.Population, r.Tags.Accuracy(), r.Heads.Accuracy(), r.Heads.ExactMatch(), r.JointExactMatch())
}

// ErrorSummary lists error classes by descending count.
func ErrorSummary(ers Errors) string {
	byType := ers.ByType()
	classes := make([]string, 0, len(byType))
	for class := range byType {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		if byType[classes[i]] != byType[classes[j]] {
			return byType[classes[i]] > byType[classes[j]]
		}
		return classes[i] < classes[j]
	})
	lines := make([]string, len(classes))
	for i, class := range classes {
		lines[i] = fmt.Sprintf("%s\t%d", class, byType[class])
	}
	return strings.Join(lines, "\n")
}
