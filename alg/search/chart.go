package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/allanj/corbit-joint/util/logutil"
	"go.uber.org/zap"
)

var ChartOut bool = false

// Key is the lexicographic ranking key (primary, secondary) of a hypothesis.
type Key [2]float64

// Less orders keys lexicographically.
func (k Key) Less(other Key) bool {
	return k[0] < other[0] || (k[0] == other[0] && k[1] < other[1])
}

// Hypothesis is a chart entry. Identity is the canonical part of the entry
// that decides search equivalence; it excludes score and derivation history.
type Hypothesis interface {
	Identity() string
	Key() Key
	IsGold() bool
	// Stage is the index of the chart the hypothesis belongs to within a
	// group of charts sharing one input position.
	Stage() int
	NumSubsumed() int
	NumPredecessors() int
}

// MergeFunc folds an incoming hypothesis into an existing one with the
// same identity and returns the new representative.
type MergeFunc func(existing, incoming Hypothesis) Hypothesis

// TiePolicy decides what happens to entries tying the last kept key at
// the beam boundary.
type TiePolicy byte

const (
	// HardCutoff keeps exactly beam entries.
	HardCutoff TiePolicy = iota
	// KeepTies also keeps every entry whose key equals the last kept key.
	KeepTies
)

type entry struct {
	hyp  Hypothesis
	key  Key
	slot string
}

// Chart holds the competing hypotheses of one decoding stage.
type Chart struct {
	sync.Mutex
	DP   bool
	Ties TiePolicy

	merge   MergeFunc
	entries map[string]*entry

	total, merged, evaluated int
	serial                   int
}

func NewChart(dp bool, merge MergeFunc) *Chart {
	if dp && merge == nil {
		panic("A dynamic programming chart requires a merge function")
	}
	return &Chart{
		DP:      dp,
		merge:   merge,
		entries: make(map[string]*entry),
	}
}

// InsertOrMerge stores h, merging it into an existing entry of the same
// identity when DP is enabled, and returns the stored hypothesis. It is
// safe for concurrent use.
func (c *Chart) InsertOrMerge(h Hypothesis) Hypothesis {
	if h == nil {
		panic("Inserted nil hypothesis into chart")
	}
	c.Lock()
	defer c.Unlock()
	c.total++
	identity := h.Identity()
	if existing, exists := c.entries[identity]; c.DP && exists {
		previous := existing.hyp.NumPredecessors()
		merged := c.merge(existing.hyp, h)
		existing.hyp, existing.key = merged, merged.Key()
		c.merged++
		if previous < 2 && merged.NumPredecessors() == 2 {
			// first time this node became a two-way merge
			c.merged++
		}
		c.evaluated += merged.NumSubsumed()
		return merged
	}
	slot := identity
	if !c.DP {
		// without merging every derivation keeps its own entry
		slot = identity + "#" + strconv.Itoa(c.serial)
		c.serial++
	}
	c.entries[slot] = &entry{h, h.Key(), slot}
	c.evaluated++
	return h
}

func (c *Chart) Len() int {
	c.Lock()
	defer c.Unlock()
	return len(c.entries)
}

// TotalStates is the number of hypotheses offered to InsertOrMerge.
func (c *Chart) TotalStates() int {
	c.Lock()
	defer c.Unlock()
	return c.total
}

// MergedStates counts merges, with an extra count when a node first
// becomes a two-way merge.
func (c *Chart) MergedStates() int {
	c.Lock()
	defer c.Unlock()
	return c.merged
}

// EvaluatedStates grows by one per fresh entry and by the subsumed count
// of the representative per merge.
func (c *Chart) EvaluatedStates() int {
	c.Lock()
	defer c.Unlock()
	return c.evaluated
}

// Clear drops all entries and resets the counters.
func (c *Chart) Clear() {
	c.Lock()
	defer c.Unlock()
	c.entries = make(map[string]*entry)
	c.total, c.merged, c.evaluated, c.serial = 0, 0, 0, 0
}

func (c *Chart) ranked() []*entry {
	l := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		l = append(l, e)
	}
	rank(l)
	return l
}

// Entries returns the hypotheses ranked best first.
func (c *Chart) Entries() []Hypothesis {
	c.Lock()
	defer c.Unlock()
	l := c.ranked()
	retval := make([]Hypothesis, len(l))
	for i, e := range l {
		retval[i] = e.hyp
	}
	return retval
}

// Prune keeps the beam best entries.
func (c *Chart) Prune(beam int) {
	c.Lock()
	defer c.Unlock()
	l := c.ranked()
	kept := cutoff(l, beam, c.Ties)
	if ChartOut {
		logutil.BgLogger().Debug("chart pruned",
			zap.Int("entries", len(l)),
			zap.Int("kept", len(kept)),
			zap.String("chart", dump(l)))
	}
	c.entries = make(map[string]*entry, len(kept))
	for _, e := range kept {
		c.entries[e.slot] = e
	}
}

// Best returns the entry with the highest key, nil for an empty chart.
func (c *Chart) Best() Hypothesis {
	c.Lock()
	defer c.Unlock()
	var best *entry
	for _, e := range c.entries {
		if best == nil || before(e, best) {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	return best.hyp
}

// ContainsGold reports whether a gold hypothesis is among the entries.
func (c *Chart) ContainsGold() bool {
	c.Lock()
	defer c.Unlock()
	for _, e := range c.entries {
		if e.hyp.IsGold() {
			return true
		}
	}
	return false
}

func (c *Chart) String() string {
	c.Lock()
	defer c.Unlock()
	return dump(c.ranked())
}

// HorizontalPrune prunes a group of charts that share one input position
// as a single beam: entries are pooled, ranked, cut to beam and put back
// into the chart indexed by their Stage. It returns the best pooled
// hypothesis, nil when the group is empty. The tie policy of the first
// chart applies.
func HorizontalPrune(charts []*Chart, beam int) Hypothesis {
	if len(charts) == 0 {
		return nil
	}
	var l []*entry
	for _, c := range charts {
		c.Lock()
		for _, e := range c.entries {
			l = append(l, e)
		}
		c.entries = make(map[string]*entry)
		c.Unlock()
	}
	rank(l)
	kept := cutoff(l, beam, charts[0].Ties)
	for _, e := range kept {
		stage := e.hyp.Stage()
		if stage < 0 || stage >= len(charts) {
			panic(fmt.Sprintf("Hypothesis stage %d outside chart group of %d", stage, len(charts)))
		}
		target := charts[stage]
		target.Lock()
		target.entries[e.slot] = e
		target.Unlock()
	}
	if len(kept) == 0 {
		return nil
	}
	return kept[0].hyp
}

// before is the ranking order: higher key first, identity breaks exact
// ties so that the ranking does not depend on insertion order.
func before(a, b *entry) bool {
	if a.key != b.key {
		return b.key.Less(a.key)
	}
	return a.slot < b.slot
}

func rank(l []*entry) {
	sort.Slice(l, func(i, j int) bool { return before(l[i], l[j]) })
}

func cutoff(l []*entry, beam int, ties TiePolicy) []*entry {
	if beam < 0 || len(l) <= beam {
		return l
	}
	if beam == 0 {
		return l[:0]
	}
	end := beam
	if ties == KeepTies {
		last := l[beam-1].key
		for end < len(l) && l[end].key == last {
			end++
		}
	}
	return l[:end]
}

func dump(l []*entry) string {
	var sb strings.Builder
	for _, e := range l {
		fmt.Fprintf(&sb, "%v %v %v\n", float32(e.key[0]), float32(e.key[1]), e.hyp)
	}
	return sb.String()
}
