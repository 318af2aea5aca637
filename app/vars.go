package app

import (
	"os"

	"github.com/allanj/corbit-joint/alg/transition"
	"github.com/allanj/corbit-joint/nlp/parser/joint"
	nlp "github.com/allanj/corbit-joint/nlp/types"
	"github.com/allanj/corbit-joint/util"
	"github.com/allanj/corbit-joint/util/conf"
	"github.com/allanj/corbit-joint/util/logutil"
	"github.com/gonuts/commander"
	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"go.uber.org/zap"
)

var (
	// file names
	confFile   string
	modelFile  string
	input      string
	inputGold  string
	outFile    string
	limitSents int

	// overrides of the configuration file
	BeamSize int
	NoDP     bool
	Workers  int
)

var ErrMissingFlag = errors.New("required flag not set")

func VerifyExists(filename string) error {
	if _, err := os.Stat(filename); err != nil {
		return errors.Annotatef(err, "accessing file %s", filename)
	}
	return nil
}

func VerifyFlags(cmd *commander.Command, required []string) error {
	for _, name := range required {
		f := cmd.Flag.Lookup(name)
		if f.Value.String() == "" {
			cmd.Usage()
			return errors.Annotatef(ErrMissingFlag, "-%s", f.Name)
		}
	}
	return nil
}

// SetupConfig reads the configuration file, if any, and applies the
// command line overrides.
func SetupConfig() (*conf.Config, error) {
	c := conf.Default()
	if confFile != "" {
		var err error
		if c, err = conf.ReadFile(confFile); err != nil {
			return nil, err
		}
	}
	if BeamSize > 0 {
		c.Beam = BeamSize
	}
	if NoDP {
		c.DP = false
	}
	if Workers > 0 {
		c.Workers = Workers
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// SetupLogger installs the configured logger and returns one tagged with
// a fresh run id.
func SetupLogger(c *conf.Config) (*zap.Logger, error) {
	if err := logutil.InitLogger(c.Log.Level, c.Log.Format); err != nil {
		return nil, err
	}
	return logutil.BgLogger().With(zap.String("run", uuid.NewString())), nil
}

// SetupDecoder builds the tag vocabulary and the scoring model. Without a
// model file every action scores zero.
func SetupDecoder(c *conf.Config, log *zap.Logger) (*joint.Decoder, error) {
	tags, err := nlp.TagSetFor(c.Tags, c.TagDictionary)
	if err != nil {
		return nil, err
	}
	vocab := transition.NewVocabulary(tags)
	model := joint.NewModel(c.LookAhead)
	if modelFile != "" {
		if model, err = joint.ReadModelFile(modelFile); err != nil {
			return nil, err
		}
		sum, err := util.MD5File(modelFile)
		if err != nil {
			return nil, err
		}
		log.Info("read model", zap.String("file", modelFile), zap.String("md5", sum))
	} else {
		log.Warn("no model file, decoding with empty weights")
	}
	d := joint.NewDecoder(vocab, model, c)
	d.Log = log
	log.Info("decoder ready",
		zap.Int("tags", tags.Len()),
		zap.Int("actions", vocab.Count()),
		zap.Int("weights", len(model.Weights)),
		zap.Int("beam", d.BeamSize),
		zap.Bool("dp", d.DP))
	return d, nil
}

func setup() (*conf.Config, *zap.Logger, *joint.Decoder, error) {
	c, err := SetupConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := SetupLogger(c)
	if err != nil {
		return nil, nil, nil, err
	}
	d, err := SetupDecoder(c, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return c, log, d, nil
}
