package malt

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	nlp "github.com/allanj/corbit-joint/nlp/types"
	"github.com/allanj/corbit-joint/util/logutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const corpus = "Economic\tJJ\t2\tamod\n" +
	"news\tNN\t3\tnsubj\n" +
	"had\tVB\t0\tROOT\n" +
	"little\tJJ\t5\tamod\n" +
	"effect\tNN\t3\tdobj\n" +
	"\n" +
	"Broken\tNN\tx\tdep\n" +
	"line\tNN\t0\tROOT\n" +
	"\n" +
	"Stocks\tNNS\t2\tnsubj\n" +
	"fell\tVBZ\t0\tROOT\n"

func TestRead(t *testing.T) {
	defer logutil.SetLogger(nil)
	core, logs := observer.New(zap.WarnLevel)
	logutil.SetLogger(zap.New(core))

	sents, err := Read(strings.NewReader(corpus), 0)
	require.NoError(t, err)
	require.Len(t, sents, 2)
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "skipping malformed sentence", logs.All()[0].Message)

	first := sents[0]
	require.Equal(t, []string{"Economic", "news", "had", "little", "effect"}, first.Tokens())
	require.Equal(t, []int{1, 2, nlp.NO_HEAD, 4, 2}, first.Heads())
	require.Equal(t, "amod", first[0].Label)
	require.True(t, first.Projective())

	require.Equal(t, "Stocks/NNS fell/VBZ", sents[1].String())
}

func TestReadLimit(t *testing.T) {
	sents, err := Read(strings.NewReader(corpus), 1)
	require.NoError(t, err)
	require.Len(t, sents, 1)
}

func TestReadRaw(t *testing.T) {
	sents, err := Read(strings.NewReader("Stocks\nfell\n\n\n\nPrices\nrose\r\n"), 0)
	require.NoError(t, err)
	require.Len(t, sents, 2)
	require.Equal(t, "Stocks fell", sents[0].String())
	require.Equal(t, nlp.NO_HEAD, sents[0][1].Head)
	require.Equal(t, "Prices rose", sents[1].String())
}

func TestParseRow(t *testing.T) {
	row, err := ParseRow("a\t_\t0\t_")
	require.NoError(t, err)
	require.Equal(t, Row{Form: "a"}, row)

	row, err = ParseRow("a\tT\t3\tl\textra")
	require.NoError(t, err)
	require.Equal(t, "l\textra", row.Label)

	for _, bad := range []string{"a\tT", "a\tT\t1", "\tT\t1\tl", "a\tT\t-2\tl"} {
		_, err = ParseRow(bad)
		require.Error(t, err, bad)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	sents, err := Read(strings.NewReader(corpus), 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sents))
	again, err := Read(&buf, 0)
	require.NoError(t, err)
	require.Equal(t, sents, again)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.malt")
	sents := []nlp.Sentence{{{Token: "x", POS: "O", Head: nlp.NO_HEAD}}}
	require.NoError(t, WriteFile(path, sents))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "x\tO\t0\t_\n\n", string(content))

	read, err := ReadFile(path, 0)
	require.NoError(t, err)
	require.Equal(t, sents, read)

	_, err = ReadFile(filepath.Join(dir, "missing"), 0)
	require.Error(t, err)
}

func TestFormatDep(t *testing.T) {
	sent := nlp.Sentence{
		{Token: "Stocks", POS: "NNS", Head: 1, Label: "nsubj"},
		{Token: "fell", POS: "VBZ", Head: nlp.NO_HEAD, Label: "ROOT"},
	}
	require.Equal(t, "0:(1)_(Stocks)_(NNS)_(nsubj) 1:(-1)_(fell)_(VBZ)_(ROOT) ", FormatDep(sent))
}
