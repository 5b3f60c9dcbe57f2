/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/pixeltunes/internal/game"
	"github.com/Seednode/pixeltunes/internal/playback"
)

type Config struct {
	bind           string
	catalog        string
	clientID       string
	clientSecret   string
	coverSize      int
	noAuth         bool
	pixelFactor    int
	pollInterval   time.Duration
	port           int
	prefix         string
	profile        bool
	redirectURL    string
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.pollInterval <= 0 {
		return fmt.Errorf("invalid poll interval (must be greater than zero): %s", c.pollInterval)
	}
	if c.pixelFactor < 1 {
		return fmt.Errorf("invalid pixel factor (must be at least 1): %d", c.pixelFactor)
	}
	if c.coverSize < 16 || c.coverSize > 2048 {
		return fmt.Errorf("invalid cover size (must be between 16-2048 inclusive): %d", c.coverSize)
	}
	if !c.noAuth && (c.clientID == "" || c.clientSecret == "") {
		return errors.New("--client-id and --client-secret are required unless --no-auth is set")
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
	v.SetEnvPrefix("PIXELTUNES")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "pixeltunes",
		Short:         "Guess the artist behind a pixelated album cover while the song plays.",
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

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PIXELTUNES_BIND)")
	fs.StringVar(&cfg.catalog, "catalog", "", "path to a song catalog file, watched for changes (env: PIXELTUNES_CATALOG)")
	fs.StringVar(&cfg.clientID, "client-id", "", "spotify application client id (env: PIXELTUNES_CLIENT_ID)")
	fs.StringVar(&cfg.clientSecret, "client-secret", "", "spotify application client secret (env: PIXELTUNES_CLIENT_SECRET)")
	fs.IntVar(&cfg.coverSize, "cover-size", 320, "edge length of rendered covers, in pixels (env: PIXELTUNES_COVER_SIZE)")
	fs.BoolVar(&cfg.noAuth, "no-auth", false, "play catalog audio urls in the browser instead of signing in (env: PIXELTUNES_NO_AUTH)")
	fs.IntVar(&cfg.pixelFactor, "pixel-factor", game.HiddenFactor, "block size used to hide unrevealed covers (env: PIXELTUNES_PIXEL_FACTOR)")
	fs.DurationVar(&cfg.pollInterval, "poll-interval", playback.DefaultPollInterval, "how often to refresh the playback position (env: PIXELTUNES_POLL_INTERVAL)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: PIXELTUNES_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: PIXELTUNES_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: PIXELTUNES_PROFILE)")
	fs.StringVar(&cfg.redirectURL, "redirect-url", "http://127.0.0.1:8080/callback", "oauth callback url registered with spotify (env: PIXELTUNES_REDIRECT_URL)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle sessions are ended (env: PIXELTUNES_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: PIXELTUNES_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: PIXELTUNES_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PIXELTUNES_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: PIXELTUNES_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("pixeltunes v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
