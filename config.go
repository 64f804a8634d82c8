package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Palettes beyond this are unplayable in a browser grid.
const maxDifficulty = 1024

type Config struct {
	bind              string
	defaultDifficulty int
	difficulties      []int
	hideTitle         bool
	metrics           bool
	port              int
	prefix            string
	profile           bool
	seed              uint64
	sessionTimeout    time.Duration
	tlsCert           string
	tlsKey            string
	verbose           bool
	version           bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if len(c.difficulties) == 0 {
		return errors.New("at least one difficulty must be provided")
	}
	for _, d := range c.difficulties {
		if d < 1 || d > maxDifficulty {
			return fmt.Errorf("invalid difficulty (must be between 1-%d inclusive): %d", maxDifficulty, d)
		}
	}
	if !slices.Contains(c.difficulties, c.defaultDifficulty) {
		return fmt.Errorf("default difficulty %d is not one of --difficulties %v", c.defaultDifficulty, c.difficulties)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SWATCHES")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "swatches",
		Short:         "A color guessing game: find the swatch matching the hex code.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SWATCHES_BIND)")
	fs.IntVarP(&cfg.defaultDifficulty, "default-difficulty", "d", 9, "palette size for new games (env: SWATCHES_DEFAULT_DIFFICULTY)")
	fs.IntSliceVar(&cfg.difficulties, "difficulties", []int{3, 9}, "palette sizes players may switch between (env: SWATCHES_DIFFICULTIES)")
	fs.BoolVar(&cfg.hideTitle, "hide-title", false, "hide the target color code until the round is won (env: SWATCHES_HIDE_TITLE)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "expose prometheus metrics at /metrics (env: SWATCHES_METRICS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SWATCHES_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SWATCHES_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SWATCHES_PROFILE)")
	fs.Uint64Var(&cfg.seed, "seed", 0, "seed for color generation, 0 for random (env: SWATCHES_SEED)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle games are ended (env: SWATCHES_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SWATCHES_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SWATCHES_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SWATCHES_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SWATCHES_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("swatches v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
