// Package main provides the entry point for the storycast CLI application.
package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storycast/internal/audio"
	"github.com/dgnsrekt/storycast/internal/config"
	"github.com/dgnsrekt/storycast/internal/gemini"
	"github.com/dgnsrekt/storycast/internal/session"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	cfg        config.Config
	logCloser  = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:   "storycast",
		Short: "Read stories aloud with a voice for every character",
		Long: paragraph(
			fmt.Sprintf("\nRead stories aloud, %s!", keyword("with a voice for every character")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd.Flags().Changed("config"))
		},
	}
)

// initConfig loads the configuration and sets up logging. An explicit
// --config file replaces the one found in the default places.
func initConfig(explicit bool) error {
	if explicit {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	c, err := config.LoadFromViper(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = c

	closer, err := setupLog(cfg)
	if err != nil {
		return err
	}
	logCloser = closer
	log.Debug("Configuration loaded", "file", viper.ConfigFileUsed(), "level", cfg.LogLevel)
	return nil
}

// newSession creates a session backed by Gemini and the system audio output.
func newSession() (*session.Session, error) {
	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, err
	}
	key, err := creds.Key()
	if err != nil {
		return nil, err
	}

	client, err := gemini.NewClient(cfg.GeminiClientConfig(key))
	if err != nil {
		return nil, err
	}

	devCfg := audio.DefaultDeviceConfig()
	devCfg.BufferSize = cfg.Playback.BufferSize
	device, err := audio.NewOtoDevice(devCfg)
	if err != nil {
		return nil, err
	}

	return session.New(client, client, device, session.Options{Prefetch: cfg.Playback.Prefetch}), nil
}

// source provides readable story text.
type source struct {
	reader io.ReadCloser
	Path   string // empty for stdin and URLs
}

// sourceFromArg parses an argument and creates a readable source for it.
func sourceFromArg(arg string) (*source, error) {
	// from stdin
	if arg == "" || arg == "-" {
		return &source{reader: io.NopCloser(os.Stdin)}, nil
	}

	// HTTP(S) URLs:
	if u, err := url.ParseRequestURI(arg); err == nil && strings.Contains(arg, "://") {
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%s is not a supported protocol", u.Scheme)
		}
		// consumer of the source is responsible for closing the ReadCloser.
		resp, err := http.Get(u.String()) //nolint: noctx,bodyclose
		if err != nil {
			return nil, fmt.Errorf("unable to get url: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
		}
		return &source{reader: resp.Body}, nil
	}

	st, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", arg)
	}
	r, err := os.Open(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	p, err := filepath.Abs(arg)
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &source{reader: r, Path: p}, nil
}

// readStory reads the story named by args, or stdin when it is piped.
func readStory(args []string) (text string, path string, err error) {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	if arg == "" {
		if yes, err := stdinIsPipe(); err != nil {
			return "", "", err
		} else if !yes {
			return "", "", errors.New("no story given: pass a file, a URL, or pipe text to stdin")
		}
	}

	src, err := sourceFromArg(arg)
	if err != nil {
		return "", "", err
	}
	defer src.reader.Close() //nolint:errcheck

	b, err := io.ReadAll(src.reader)
	if err != nil {
		return "", "", fmt.Errorf("unable to read story: %w", err)
	}
	return string(b), src.Path, nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// terminalWidth returns the word-wrap width for output.
func terminalWidth() int {
	width := 80
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	if width > 120 {
		width = 120
	}
	return width
}

func main() {
	err := rootCmd.Execute()
	_ = logCloser()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to a file instead of stderr")

	// Config bindings
	_ = viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFile, rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.AddCommand(analyzeCmd, readCmd, exportCmd, voicesCmd, configCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "storycast")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "storycast")}, dirs...)
	}

	if c := os.Getenv("STORYCAST_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("storycast")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("storycast")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	configFile = filepath.Join(dirs[0], "storycast.yml")
}
