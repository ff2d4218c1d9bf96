package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/pdetsolar/footprints/internal/config"
	"github.com/pdetsolar/footprints/internal/fetch"
	"github.com/pdetsolar/footprints/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"  env:"CONFIG_FILE"   description:"Path to configuration file" default:"config.yaml"`
	Source     string `short:"s" long:"source"  env:"FETCH_SOURCE"  description:"Fetch a single source (default all configured)"`
	Timeout    int    `short:"t" long:"timeout" env:"FETCH_TIMEOUT" description:"Overall request timeout in seconds, 0 disables" default:"0"`
	Force      bool   `short:"f" long:"force"                       description:"Force overwrite of existing files"`
}

func main() {
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.LoadOrDefault(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	names := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	if opts.Source != "" {
		if _, ok := cfg.Sources[opts.Source]; !ok {
			log.Fatal().Str("source", opts.Source).Strs("configured", names).Msg("Unknown source")
		}
		names = []string{opts.Source}
	}
	if len(names) == 0 {
		log.Warn().Msg("No source URLs configured, nothing to fetch")
		return
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: time.Duration(opts.Timeout) * time.Second,
	}

	ctx := context.Background()
	failed := 0
	for _, name := range names {
		srcURL := cfg.Sources[name]

		dest, err := destPath(cfg.Data.Dir, name, srcURL)
		if err != nil {
			log.Error().Err(err).Str("source", name).Msg("Bad source URL")
			failed++
			continue
		}

		if err := fetch.Fetch(ctx, client, srcURL, dest, opts.Force); err != nil {
			log.Error().Err(err).Str("source", name).Msg("Failed to download source")
			failed++
		}
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Int("total", len(names)).Msg("Fetch failed")
		os.Exit(1)
	}

	log.Info().Int("sources", len(names)).Msg("Fetch finished successfully")
}

// destPath places a source's download under its own data subdirectory,
// keeping the file name from the URL.
func destPath(dir, name, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("no file name in URL %q", raw)
	}

	return filepath.Join(dir, name, base), nil
}
