package types

import (
	"sort"

	"github.com/allanj/corbit-joint/util"
	"github.com/pingcap/errors"
)

// Built in tag dictionaries, selectable by name from the configuration.
var (
	EntityTags = []string{
		"B-person", "I-person",
		"B-gpe", "I-gpe",
		"B-organization", "I-organization",
		"B-MISC", "I-MISC",
		"O",
	}
	EnglishTags = []string{"NNS", "CC", "DT", "JJ", "NN", "VBZ", "IN", ".", "WP"}

	TagDictionaries = map[string][]string{
		"entity":  EntityTags,
		"english": EnglishTags,
	}
)

var ErrUnknownDictionary = errors.New("unknown tag dictionary")

// NewTagSet builds a frozen tag set from an explicit tag list. Duplicates
// are ignored, first occurrence wins the index.
func NewTagSet(tags []string) *util.EnumSet {
	return util.NewFrozenEnumSet(tags)
}

// TagSetFor resolves the tag inventory of a model: an explicit list wins
// over a named dictionary.
func TagSetFor(tags []string, dictionary string) (*util.EnumSet, error) {
	if len(tags) > 0 {
		return NewTagSet(tags), nil
	}
	dict, exists := TagDictionaries[dictionary]
	if !exists {
		return nil, errors.Annotatef(ErrUnknownDictionary, "%q", dictionary)
	}
	return NewTagSet(dict), nil
}

// CollectTags gathers the tag inventory of an annotated corpus, sorted.
func CollectTags(sents []Sentence) []string {
	seen := make(map[string]bool)
	for _, sent := range sents {
		for _, token := range sent {
			if token.POS != "" {
				seen[token.POS] = true
			}
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
