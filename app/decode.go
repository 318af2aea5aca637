package app

import (
	"context"
	"os"

	"github.com/allanj/corbit-joint/nlp/format/malt"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"go.uber.org/zap"
)

func runDecode(cmd *commander.Command, args []string) error {
	if err := VerifyFlags(cmd, []string{"in"}); err != nil {
		return err
	}
	if err := VerifyExists(input); err != nil {
		return err
	}
	c, log, d, err := setup()
	if err != nil {
		return err
	}
	sents, err := malt.ReadFile(input, limitSents)
	if err != nil {
		return err
	}
	log.Info("read corpus", zap.String("file", input), zap.Int("sentences", len(sents)))

	stats := &BatchStats{}
	parsed, err := DecodeCorpus(context.Background(), d, sents, c.Workers, stats)
	if err != nil {
		return err
	}
	if outFile == "" {
		return malt.Write(os.Stdout, parsed)
	}
	if err := malt.WriteFile(outFile, parsed); err != nil {
		return err
	}
	log.Info("wrote parses", zap.String("file", outFile))
	return nil
}

func DecodeCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runDecode,
		UsageLine: "decode <file options> [arguments]",
		Short:     "tags and parses a corpus",
		Long: `
tags and parses a corpus of tab separated form/tag/head/label lines, of
which only the forms are read

	$ ./corbit-joint decode -in <file> [-c conf.yaml] [-w weights.yaml] [-out <file>] [options]

`,
		Flag: *flag.NewFlagSet("decode", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&confFile, "c", "", "Configuration File")
	cmd.Flag.StringVar(&modelFile, "w", "", "Weights File")
	cmd.Flag.StringVar(&input, "in", "", "Input File")
	cmd.Flag.StringVar(&outFile, "out", "", "Output File (default stdout)")
	cmd.Flag.IntVar(&limitSents, "limit", 0, "Decode at most this many sentences; 0 = all")
	cmd.Flag.IntVar(&BeamSize, "b", 0, "Beam Size (overrides configuration)")
	cmd.Flag.BoolVar(&NoDP, "nodp", false, "Disable merging of equivalent states")
	cmd.Flag.IntVar(&Workers, "workers", 0, "Concurrent sentences and expansion workers (overrides configuration)")
	return cmd
}
