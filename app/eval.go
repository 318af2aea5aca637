package app

import (
	"fmt"
	"os"

	"github.com/allanj/corbit-joint/eval"
	"github.com/allanj/corbit-joint/nlp/format/malt"
	nlp "github.com/allanj/corbit-joint/nlp/types"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pingcap/errors"
	"go.uber.org/zap"
)

var showErrors bool

// Evaluate scores parallel test and gold corpora.
func Evaluate(test, gold []nlp.Sentence) (*eval.Report, error) {
	if len(test) != len(gold) {
		return nil, errors.Errorf("evaluation set sizes are different: %d test, %d gold", len(test), len(gold))
	}
	report := eval.NewReport(showErrors)
	for i, sent := range test {
		if err := report.Add(sent, gold[i]); err != nil {
			return nil, errors.Annotatef(err, "sentence %d", i)
		}
	}
	return report, nil
}

func runEval(cmd *commander.Command, args []string) error {
	if err := VerifyFlags(cmd, []string{"test", "gold"}); err != nil {
		return err
	}
	c, err := SetupConfig()
	if err != nil {
		return err
	}
	log, err := SetupLogger(c)
	if err != nil {
		return err
	}
	test, err := malt.ReadFile(input, 0)
	if err != nil {
		return err
	}
	gold, err := malt.ReadFile(inputGold, 0)
	if err != nil {
		return err
	}
	report, err := Evaluate(test, gold)
	if err != nil {
		return err
	}
	log.Info("evaluated",
		zap.String("test", input),
		zap.String("gold", inputGold),
		zap.Float64("tag accuracy", report.Tags.Accuracy()),
		zap.Float64("uas", report.Heads.Accuracy()))
	fmt.Fprintln(os.Stdout, report)
	if showErrors {
		fmt.Fprintln(os.Stdout, eval.ErrorSummary(report.Tags.Errors()))
		fmt.Fprintln(os.Stdout, eval.ErrorSummary(report.Heads.Errors()))
	}
	return nil
}

func EvalCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runEval,
		UsageLine: "eval <file options> [arguments]",
		Short:     "runs tagging and attachment eval",
		Long: `
runs tagging and attachment eval: tag accuracy, unlabeled attachment score,
unlabeled and joint exact match

	$ ./corbit-joint eval -test <file> -gold <file> [-c <conf>] [options]

`,
		Flag: *flag.NewFlagSet("eval", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&confFile, "c", "", "Configuration, read for the log settings")
	cmd.Flag.StringVar(&input, "test", "", "Decoded File")
	cmd.Flag.StringVar(&inputGold, "gold", "", "Gold File")
	cmd.Flag.BoolVar(&showErrors, "errors", false, "Print error counts by class")
	return cmd
}
