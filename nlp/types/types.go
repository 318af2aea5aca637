package types

import (
	"strings"

	"github.com/allanj/corbit-joint/util"
)

const (
	ROOT_TOKEN = "ROOT"
	ROOT_LABEL = "ROOT"
	// NO_HEAD marks a token whose head is not (yet) assigned, and the head
	// of the root token of a complete tree.
	NO_HEAD = -1
)

// TaggedToken is one input position with optional gold annotations.
// Head is 0-based; NO_HEAD for the root or when unknown.
type TaggedToken struct {
	Token, POS string
	Head       int
	Label      string
}

type Sentence []TaggedToken

// Tokens returns the surface forms.
func (s Sentence) Tokens() []string {
	tokens := make([]string, len(s))
	for i, token := range s {
		tokens[i] = token.Token
	}
	return tokens
}

func (s Sentence) Tags() []string {
	tags := make([]string, len(s))
	for i, token := range s {
		tags[i] = token.POS
	}
	return tags
}

func (s Sentence) Heads() []int {
	heads := make([]int, len(s))
	for i, token := range s {
		heads[i] = token.Head
	}
	return heads
}

// Annotated is true when every token carries a tag, which is what the gold
// oracle needs; heads are checked by Projective.
func (s Sentence) Annotated() bool {
	for _, token := range s {
		if token.POS == "" {
			return false
		}
	}
	return true
}

// Root returns the position of the single headless token, or NO_HEAD when
// there is none or more than one.
func (s Sentence) Root() int {
	root := NO_HEAD
	for i, token := range s {
		if token.Head == NO_HEAD {
			if root != NO_HEAD {
				return NO_HEAD
			}
			root = i
		}
	}
	return root
}

// Projective reports whether the heads form a single-rooted projective
// tree.
func (s Sentence) Projective() bool {
	if len(s) == 0 {
		return true
	}
	root := s.Root()
	if root == NO_HEAD {
		return false
	}
	for i, token := range s {
		h := token.Head
		if h == NO_HEAD {
			continue
		}
		if h < 0 || h >= len(s) || h == i {
			return false
		}
		// no cycles
		if !s.dominates(root, i) {
			return false
		}
		lo, hi := util.Min(i, h), util.Max(i, h)
		for k := lo + 1; k < hi; k++ {
			// every token between a dependent and its head must be
			// dominated by the head
			if !s.dominates(h, k) {
				return false
			}
		}
	}
	return true
}

func (s Sentence) dominates(head, node int) bool {
	for steps := 0; node != NO_HEAD && steps <= len(s); steps++ {
		if node == head {
			return true
		}
		node = s[node].Head
	}
	return false
}

// Strip returns a copy with the gold annotations removed.
func (s Sentence) Strip() Sentence {
	stripped := make(Sentence, len(s))
	for i, token := range s {
		stripped[i] = TaggedToken{Token: token.Token, Head: NO_HEAD}
	}
	return stripped
}

func (s Sentence) String() string {
	strs := make([]string, len(s))
	for i, token := range s {
		if token.POS == "" {
			strs[i] = token.Token
		} else {
			strs[i] = token.Token + "/" + token.POS
		}
	}
	return strings.Join(strs, " ")
}
