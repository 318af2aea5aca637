package app

import (
	"context"
	"fmt"
	"os"

	"github.com/allanj/corbit-joint/nlp/format/malt"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"go.uber.org/zap"
)

func runOracle(cmd *commander.Command, args []string) error {
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
	gold, err := malt.ReadFile(input, limitSents)
	if err != nil {
		return err
	}
	log.Info("read gold corpus", zap.String("file", input), zap.Int("sentences", len(gold)))

	stats := &BatchStats{}
	results, err := OracleCorpus(context.Background(), d, gold, c.Workers, stats)
	if err != nil {
		return err
	}
	for i, res := range results {
		if res != nil && res.SearchError {
			fmt.Fprintf(os.Stdout, "%d\t%d\t%v\n", i, res.EarlyUpdateAt, res.Gold)
		}
	}
	return nil
}

func OracleCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runOracle,
		UsageLine: "oracle <file options> [arguments]",
		Short:     "reports gold derivations falling off the beam",
		Long: `
decodes an annotated corpus in training mode and prints, for every sentence
whose gold derivation was pruned, its index, the position it was lost at and
the gold action sequence

	$ ./corbit-joint oracle -in <gold file> [-c conf.yaml] [-w weights.yaml] [options]

`,
		Flag: *flag.NewFlagSet("oracle", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&confFile, "c", "", "Configuration File")
	cmd.Flag.StringVar(&modelFile, "w", "", "Weights File")
	cmd.Flag.StringVar(&input, "in", "", "Gold Input File")
	cmd.Flag.IntVar(&limitSents, "limit", 0, "Decode at most this many sentences; 0 = all")
	cmd.Flag.IntVar(&BeamSize, "b", 0, "Beam Size (overrides configuration)")
	cmd.Flag.BoolVar(&NoDP, "nodp", false, "Disable merging of equivalent states")
	cmd.Flag.IntVar(&Workers, "workers", 0, "Concurrent sentences and expansion workers (overrides configuration)")
	return cmd
}
