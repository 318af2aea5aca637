// Package malt reads and writes the four column tab separated corpus
// format: one token per line as FORM, TAG, HEAD (1-based, 0 for the root)
// and LABEL, sentences separated by an empty line. Raw input for decoding
// may carry the FORM column only.
package malt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	nlp "github.com/allanj/corbit-joint/nlp/types"
	"github.com/allanj/corbit-joint/util/logutil"
	"github.com/pingcap/errors"
	"go.uber.org/zap"
)

const (
	FIELD_SEPARATOR = "\t"
	NUM_FIELDS      = 4
	EMPTY_FIELD     = "_"
)

type Row struct {
	Form  string
	Tag   string
	Head  int
	Label string
}

func (r Row) String() string {
	return strings.Join([]string{r.Form, orEmpty(r.Tag), strconv.Itoa(r.Head), orEmpty(r.Label)}, FIELD_SEPARATOR)
}

func orEmpty(s string) string {
	if s == "" {
		return EMPTY_FIELD
	}
	return s
}

func parseString(value string) string {
	if value == EMPTY_FIELD {
		return ""
	}
	return value
}

// ParseRow parses one token line. The label field absorbs any trailing
// columns.
func ParseRow(line string) (Row, error) {
	var row Row
	fields := strings.SplitN(line, FIELD_SEPARATOR, NUM_FIELDS)
	if fields[0] == "" {
		return row, errors.New("empty FORM field")
	}
	row.Form = fields[0]
	switch len(fields) {
	case 1:
		return row, nil
	case NUM_FIELDS:
	default:
		return row, errors.Errorf("expected 1 or %d fields, found %d", NUM_FIELDS, len(fields))
	}
	row.Tag = parseString(fields[1])
	head, err := strconv.Atoi(fields[2])
	if err != nil {
		return row, errors.Annotatef(err, "parsing HEAD field (%s)", fields[2])
	}
	if head < 0 {
		return row, errors.Errorf("negative HEAD field (%d)", head)
	}
	row.Head = head
	row.Label = parseString(fields[3])
	return row, nil
}

// Sentence converts rows to a sentence with 0-based heads.
func Sentence(rows []Row) nlp.Sentence {
	sent := make(nlp.Sentence, len(rows))
	for i, row := range rows {
		token := nlp.TaggedToken{Token: row.Form, POS: row.Tag, Head: row.Head - 1, Label: row.Label}
		if row.Head == 0 {
			token.Head = nlp.NO_HEAD
		}
		sent[i] = token
	}
	return sent
}

// Rows converts a sentence back, writing unassigned heads as the root.
func Rows(sent nlp.Sentence) []Row {
	rows := make([]Row, len(sent))
	for i, token := range sent {
		rows[i] = Row{Form: token.Token, Tag: token.POS, Head: token.Head + 1, Label: token.Label}
		if token.Head < 0 {
			rows[i].Head = 0
		}
	}
	return rows
}

// Read parses sentences until EOF or limit sentences (limit <= 0 reads all).
// A sentence with a malformed line is skipped and reported, never
// returned as an error; only I/O failures are.
func Read(reader io.Reader, limit int) ([]nlp.Sentence, error) {
	var (
		sents   []nlp.Sentence
		current []Row
		broken  bool
		lineNum int
	)
	flush := func() {
		if !broken && len(current) > 0 {
			sents = append(sents, Sentence(current))
		}
		current, broken = nil, false
	}
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line == "" {
			flush()
			if limit > 0 && len(sents) >= limit {
				return sents, nil
			}
			continue
		}
		if broken {
			continue
		}
		row, err := ParseRow(line)
		if err != nil {
			logutil.BgLogger().Warn("skipping malformed sentence",
				zap.Int("line", lineNum),
				zap.Int("sentence", len(sents)),
				zap.Error(err))
			broken = true
			continue
		}
		current = append(current, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Annotatef(err, "reading line %d", lineNum+1)
	}
	flush()
	if limit > 0 && len(sents) > limit {
		sents = sents[:limit]
	}
	return sents, nil
}

func ReadFile(filename string, limit int) ([]nlp.Sentence, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	sents, err := Read(file, limit)
	return sents, errors.Annotatef(err, "file %s", filename)
}

func Write(writer io.Writer, sents []nlp.Sentence) error {
	w := bufio.NewWriter(writer)
	for _, sent := range sents {
		for _, row := range Rows(sent) {
			if _, err := w.WriteString(row.String() + "\n"); err != nil {
				return errors.Trace(err)
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(w.Flush())
}

func WriteFile(filename string, sents []nlp.Sentence) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	return Write(file, sents)
}

// FormatDep renders a sentence on one line as
// index:(head)_(form)_(tag)_(label) items with 0-based indices.
func FormatDep(sent nlp.Sentence) string {
	var sb strings.Builder
	for i, token := range sent {
		fmt.Fprintf(&sb, "%d:(%d)_(%s)_(%s)_(%s) ", i, token.Head, token.Token, token.POS, token.Label)
	}
	return sb.String()
}
