package joint

import (
	"strconv"

	"github.com/allanj/corbit-joint/util"
)

// Atom indices. Atoms are the strings feature templates are built from,
// computed once per state.
const (
	A_CURSOR = iota
	A_S0_IDX
	A_S0_HEAD
	A_S1_IDX
	A_S0W
	A_S1W
	A_QP1W
	A_Q0W
	A_Q1W
	A_S0T
	A_S1T
	A_S2T
	A_QP2T
	A_QP1T
	A_Q0T
	A_Q1T
	A_S0RCT
	A_S0LCT
	A_S1RCT
	A_S1LCT
	A_PREV_TAG
	A_ADJOIN
	NUM_ATOMS
)

const (
	// OOR fills atoms that point outside the sentence or the stack.
	OOR = "<OOR>"
	// NO_TAG stands for a stack item that was shifted without a tag.
	NO_TAG = "<NT>"
	// OUTSIDE is the tag preceding the first token.
	OUTSIDE = "O"
)

// Atoms is the fixed table of atomic features of a state. A_Q0T and A_Q1T
// are empty while the queue tokens are not tagged yet, which is when the
// features using them have to be delayed.
type Atoms [NUM_ATOMS]string

// Atoms returns the cached atom table, computing it on first use.
func (s *State) Atoms() *Atoms {
	s.cache.once.Do(func() {
		s.cache.atoms = computeAtoms(s)
	})
	return &s.cache.atoms
}

func computeAtoms(s *State) Atoms {
	var a Atoms
	n := len(s.sent)
	st0, st1, st2 := s.StackTop(0), s.StackTop(1), s.StackTop(2)
	form := func(i int) string {
		if i < 0 || i >= n {
			return OOR
		}
		return s.sent[i].Token
	}
	// tags of consumed tokens come from the state, queue tags are unknown
	tag := func(i int) string {
		switch {
		case i < 0 || i >= n:
			return OOR
		case i >= s.Cursor:
			return ""
		case s.Tags[i] == "":
			return NO_TAG
		}
		return s.Tags[i]
	}
	childTag := func(i int) string {
		if i < 0 {
			return OOR
		}
		return tag(i)
	}

	a[A_CURSOR] = strconv.Itoa(s.Cursor)
	a[A_S0_IDX] = strconv.Itoa(st0)
	a[A_S0_HEAD] = "-2"
	if st0 >= 0 {
		a[A_S0_HEAD] = strconv.Itoa(s.Heads[st0])
	}
	a[A_S1_IDX] = strconv.Itoa(st1)

	a[A_S0W] = form(st0)
	a[A_S1W] = form(st1)
	a[A_QP1W] = form(s.Cursor - 1)
	a[A_Q0W] = form(s.Cursor)
	a[A_Q1W] = form(s.Cursor + 1)

	a[A_S0T] = tag(st0)
	a[A_S1T] = tag(st1)
	a[A_S2T] = tag(st2)
	a[A_QP2T] = tag(s.Cursor - 2)
	a[A_QP1T] = tag(s.Cursor - 1)
	a[A_Q0T] = tag(s.Cursor)
	a[A_Q1T] = tag(s.Cursor + 1)

	a[A_S0RCT] = childTag(rightmostChild(s, st0))
	a[A_S0LCT] = childTag(leftmostChild(s, st0))
	a[A_S1RCT] = childTag(rightmostChild(s, st1))
	a[A_S1LCT] = childTag(leftmostChild(s, st1))

	a[A_PREV_TAG] = OUTSIDE
	if s.Cursor > 0 {
		a[A_PREV_TAG] = tag(s.Cursor - 1)
	}
	a[A_ADJOIN] = strconv.FormatBool(st0 >= 0 && st1 >= 0 && util.AbsInt(st0-st1) == 1)
	return a
}

func leftmostChild(s *State, head int) int {
	if head < 0 {
		return -1
	}
	for i := 0; i < head; i++ {
		if s.Heads[i] == head {
			return i
		}
	}
	return -1
}

func rightmostChild(s *State, head int) int {
	if head < 0 {
		return -1
	}
	for i := len(s.Heads) - 1; i > head; i-- {
		if s.Heads[i] == head {
			return i
		}
	}
	return -1
}
