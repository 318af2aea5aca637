package conf

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/pingcap/errors"
	"gopkg.in/yaml.v2"
)

const (
	TIES_HARD = "hard"
	TIES_KEEP = "keep"
)

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config holds the decoder settings. Zero values in a file leave the
// corresponding Default value in place.
type Config struct {
	Beam            int       `yaml:"beam"`
	DP              bool      `yaml:"dp"`
	Margin          float64   `yaml:"margin"`
	Concurrent      bool      `yaml:"concurrent"`
	Workers         int       `yaml:"workers"`
	MaxPredecessors int       `yaml:"max predecessors"`
	Ties            string    `yaml:"ties"`
	LookAhead       bool      `yaml:"lookahead"`
	Tags            []string  `yaml:"tags"`
	TagDictionary   string    `yaml:"tag dictionary"`
	Log             LogConfig `yaml:"log"`
}

func Default() *Config {
	return &Config{
		Beam:            16,
		DP:              true,
		Margin:          0,
		Concurrent:      true,
		Workers:         0,
		MaxPredecessors: 16,
		Ties:            TIES_HARD,
		LookAhead:       true,
		TagDictionary:   "entity",
		Log:             LogConfig{Level: "info", Format: "text"},
	}
}

func (c *Config) Validate() error {
	if c.Beam < 1 {
		return errors.Errorf("beam must be positive, got %d", c.Beam)
	}
	if c.Margin < 0 {
		return errors.Errorf("margin must not be negative, got %v", c.Margin)
	}
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.MaxPredecessors != 0 && c.MaxPredecessors < 2 {
		return errors.Errorf("max predecessors must be 0 (unbounded) or at least 2, got %d", c.MaxPredecessors)
	}
	switch c.Ties {
	case TIES_HARD, TIES_KEEP:
	default:
		return errors.Errorf("unknown ties policy %q", c.Ties)
	}
	if len(c.Tags) == 0 && c.TagDictionary == "" {
		return errors.New("no tags and no tag dictionary configured")
	}
	return nil
}

func Read(reader io.Reader) (*Config, error) {
	data, err := ioutil.ReadAll(reader)
	if err != nil {
		return nil, errors.Trace(err)
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Annotate(err, "parsing configuration")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func ReadFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Annotatef(err, "opening configuration %s", filename)
	}
	defer file.Close()

	return Read(file)
}
