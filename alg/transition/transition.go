package transition

import (
	"fmt"
	"strings"

	"github.com/pingcap/errors"
)

// Kind is the family of a transition action.
type Kind byte

const (
	Shift Kind = iota
	ReduceRight
	ReduceLeft
	NotAvailable
	EndState
	Pending
	ReducePos
	ShiftPos
)

// FIXED_ACTIONS is the number of actions that carry no tag; tag actions
// are encoded after them.
const FIXED_ACTIONS = 6

var kindNames = [...]string{"S", "RR", "RL", "NA", "E", "SS", "R", "RS"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

// Action is a transition action. It is a comparable value: two actions are
// equal iff they have the same Kind and, for tag actions, the same tag.
type Action struct {
	Kind Kind
	tag  string
}

var (
	SHIFT         = Action{Kind: Shift}
	REDUCE_RIGHT  = Action{Kind: ReduceRight}
	REDUCE_LEFT   = Action{Kind: ReduceLeft}
	NOT_AVAILABLE = Action{Kind: NotAvailable}
	END_STATE     = Action{Kind: EndState}
	PENDING       = Action{Kind: Pending}
)

var fixedActions = [FIXED_ACTIONS]Action{SHIFT, REDUCE_RIGHT, REDUCE_LEFT, NOT_AVAILABLE, END_STATE, PENDING}

func (a Action) HasTag() bool {
	return a.Kind == ReducePos || a.Kind == ShiftPos
}

// Tag returns the tag of a ReducePos/ShiftPos action. Asking any other
// action for its tag is a caller bug.
func (a Action) Tag() string {
	if !a.HasTag() {
		panic(fmt.Sprintf("Action %v carries no tag", a))
	}
	return a.tag
}

// ConsumesInput is true for actions that advance the input cursor.
func (a Action) ConsumesInput() bool {
	return a.Kind == Shift || a.Kind == ShiftPos
}

// InsertsTag is true for actions that assign a tag without consuming input.
func (a Action) InsertsTag() bool {
	return a.Kind == ReducePos
}

func (a Action) String() string {
	if a.HasTag() {
		return a.Kind.String() + "-" + a.tag
	}
	return a.Kind.String()
}

// TagSet is the ordered tag inventory a Vocabulary is built from.
type TagSet interface {
	IndexOf(tag string) (int, bool)
	ValueOf(index int) string
	Len() int
}

var ErrUnknownTag = errors.New("unknown tag")

// Vocabulary is the closed action inventory of one tag set. It is
// immutable after construction.
type Vocabulary struct {
	tags   TagSet
	reduce []Action
	shift  []Action
}

func NewVocabulary(tags TagSet) *Vocabulary {
	if tags == nil {
		panic("Vocabulary requires a tag set")
	}
	numTags := tags.Len()
	v := &Vocabulary{
		tags:   tags,
		reduce: make([]Action, numTags),
		shift:  make([]Action, numTags),
	}
	for i := 0; i < numTags; i++ {
		tag := tags.ValueOf(i)
		v.reduce[i] = Action{Kind: ReducePos, tag: tag}
		v.shift[i] = Action{Kind: ShiftPos, tag: tag}
	}
	return v
}

func (v *Vocabulary) Tags() TagSet {
	return v.tags
}

func (v *Vocabulary) Count() int {
	return FIXED_ACTIONS + len(v.reduce)
}

// Decode maps a dense index to its action. Indices past the fixed actions
// decode to the reduce-with-tag family. Out of range indices panic.
func (v *Vocabulary) Decode(index int) Action {
	switch {
	case index >= 0 && index < FIXED_ACTIONS:
		return fixedActions[index]
	case index >= FIXED_ACTIONS && index < v.Count():
		return v.reduce[index-FIXED_ACTIONS]
	}
	panic(fmt.Sprintf("Action index %d out of range [0,%d)", index, v.Count()))
}

// Encode maps an action to its dense index. Both tag families share the
// index of their tag.
func (v *Vocabulary) Encode(a Action) int {
	if !a.HasTag() {
		if int(a.Kind) >= FIXED_ACTIONS {
			panic(fmt.Sprintf("Unknown action kind %v", a.Kind))
		}
		return int(a.Kind)
	}
	index, exists := v.tags.IndexOf(a.tag)
	if !exists {
		panic(fmt.Sprintf("Action %v has a tag outside the vocabulary", a))
	}
	return FIXED_ACTIONS + index
}

func (v *Vocabulary) ReduceWithTag(tag string) (Action, error) {
	index, exists := v.tags.IndexOf(tag)
	if !exists {
		return NOT_AVAILABLE, errors.Annotatef(ErrUnknownTag, "reduce with %q", tag)
	}
	return v.reduce[index], nil
}

func (v *Vocabulary) ShiftWithTag(tag string) (Action, error) {
	index, exists := v.tags.IndexOf(tag)
	if !exists {
		return NOT_AVAILABLE, errors.Annotatef(ErrUnknownTag, "shift with %q", tag)
	}
	return v.shift[index], nil
}

// ReduceActions returns the reduce-with-tag family in tag order.
func (v *Vocabulary) ReduceActions() []Action {
	return v.reduce
}

// ShiftActions returns the shift-with-tag family in tag order.
func (v *Vocabulary) ShiftActions() []Action {
	return v.shift
}

// Parse reads the String form of an action back.
func (v *Vocabulary) Parse(s string) (Action, error) {
	for _, a := range fixedActions {
		if a.String() == s {
			return a, nil
		}
	}
	switch {
	case strings.HasPrefix(s, "RS-"):
		return v.ShiftWithTag(s[3:])
	case strings.HasPrefix(s, "R-"):
		return v.ReduceWithTag(s[2:])
	}
	return NOT_AVAILABLE, errors.Errorf("unknown action %q", s)
}

type Sequence []Action

func (seq Sequence) String() string {
	strs := make([]string, len(seq))
	for i, a := range seq {
		strs[i] = a.String()
	}
	return strings.Join(strs, " ")
}
