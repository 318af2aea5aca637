package joint

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/allanj/corbit-joint/alg/search"
	"github.com/allanj/corbit-joint/alg/transition"
	nlp "github.com/allanj/corbit-joint/nlp/types"
)

// State is one node of the derivation graph of a sentence. States are
// never modified after the generator hands them out; merging builds a new
// representative.
type State struct {
	ID   int
	Step int
	// TagInsertions counts the tag actions that consumed no input; a
	// state lives in chart TagInsertions of the group at input position
	// Step-TagInsertions.
	TagInsertions int

	Stack  []int
	Cursor int
	Heads  []int
	Tags   []string

	// Predecessors are arena ids, Primary is the one the best derivation
	// goes through. The initial state has none and Primary -1.
	Predecessors []int
	Primary      int

	PathScore      float64
	SecondaryScore float64
	// RawScore is the path score before the training margin.
	RawScore float64

	Subsumed int
	Gold     bool
	Terminal bool
	Last     transition.Action

	Delayed []Delayed

	sent     nlp.Sentence
	identity string
	cache    *atomCache
}

var _ search.Hypothesis = &State{}

type atomCache struct {
	once  sync.Once
	atoms Atoms
}

// StackTop returns the i-th item from the top of the stack, -1 if absent.
func (s *State) StackTop(i int) int {
	if i < 0 || i >= len(s.Stack) {
		return -1
	}
	return s.Stack[len(s.Stack)-1-i]
}

func (s *State) Len() int {
	return len(s.sent)
}

func (s *State) Sentence() nlp.Sentence {
	return s.sent
}

// Position is the index of the chart group the state belongs to.
func (s *State) Position() int {
	return s.Step - s.TagInsertions
}

func (s *State) Identity() string {
	return s.identity
}

func (s *State) Key() search.Key {
	return search.Key{s.PathScore, s.SecondaryScore}
}

func (s *State) IsGold() bool {
	return s.Gold
}

func (s *State) Stage() int {
	return s.TagInsertions
}

func (s *State) NumSubsumed() int {
	return s.Subsumed
}

func (s *State) NumPredecessors() int {
	return len(s.Predecessors)
}

// computeIdentity serializes the part of the configuration that decides
// search equivalence: cursor, stack, heads, tags and termination.
func (s *State) computeIdentity() {
	buf := make([]byte, 0, 8*len(s.Heads)+16)
	buf = strconv.AppendInt(buf, int64(s.Cursor), 10)
	buf = append(buf, '|')
	for _, item := range s.Stack {
		buf = strconv.AppendInt(buf, int64(item), 10)
		buf = append(buf, ',')
	}
	buf = append(buf, '|')
	for _, head := range s.Heads {
		buf = strconv.AppendInt(buf, int64(head), 10)
		buf = append(buf, ',')
	}
	buf = append(buf, '|')
	for _, tag := range s.Tags {
		buf = append(buf, tag...)
		buf = append(buf, 0)
	}
	if s.Terminal {
		buf = append(buf, '$')
	}
	s.identity = string(buf)
}

func (s *State) String() string {
	stack := make([]string, len(s.Stack))
	for i, item := range s.Stack {
		stack[i] = s.sent[item].Token
		if s.Tags[item] != "" {
			stack[i] += "/" + s.Tags[item]
		}
	}
	return fmt.Sprintf("%d %s [%s] %d/%d %.3f",
		s.Step, s.Last, strings.Join(stack, " "), s.Cursor, len(s.sent), s.PathScore)
}

// Arena owns every state created while decoding one sentence. Predecessor
// links are arena ids.
type Arena struct {
	sync.RWMutex
	states []*State
}

func NewArena(capacity int) *Arena {
	return &Arena{states: make([]*State, 0, capacity)}
}

// Add stores s and assigns its id.
func (a *Arena) Add(s *State) int {
	a.Lock()
	defer a.Unlock()
	s.ID = len(a.states)
	a.states = append(a.states, s)
	return s.ID
}

func (a *Arena) Get(id int) *State {
	a.RLock()
	defer a.RUnlock()
	if id < 0 || id >= len(a.states) {
		panic(fmt.Sprintf("State id %d not in arena of %d", id, len(a.states)))
	}
	return a.states[id]
}

func (a *Arena) Len() int {
	a.RLock()
	defer a.RUnlock()
	return len(a.states)
}

// Derivation follows primary predecessors back to the initial state and
// returns the path starting at it.
func (a *Arena) Derivation(s *State) []*State {
	var path []*State
	for cur := s; cur != nil; {
		path = append(path, cur)
		if cur.Primary < 0 {
			break
		}
		cur = a.Get(cur.Primary)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Actions is the action sequence of the best derivation of s.
func (a *Arena) Actions(s *State) transition.Sequence {
	path := a.Derivation(s)
	seq := make(transition.Sequence, 0, len(path))
	for _, state := range path[1:] {
		seq = append(seq, state.Last)
	}
	return seq
}
