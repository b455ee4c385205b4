// Package main provides the entry point for the narrator CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/rockhound/narrator/dialogue"
	"github.com/rockhound/narrator/dialogue/fallback"
	"github.com/rockhound/narrator/dialogue/playback"
	"github.com/rockhound/narrator/internal/cache"
	"github.com/rockhound/narrator/internal/metrics"
	"github.com/rockhound/narrator/internal/service"
	"github.com/rockhound/narrator/pkg/audio"
	"github.com/rockhound/narrator/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile  string
	modeName    string
	topic       string
	tui         bool
	plain       bool
	debug       bool
	metricsAddr string

	rootCmd = &cobra.Command{
		Use:   "narrator",
		Short: "Narrate guide scripts with synchronized speech",
		Long: paragraph(
			fmt.Sprintf("\nNarrate guide scripts in the terminal, %s.", keyword("with a talking face")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

func validateOptions(cmd *cobra.Command) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	tui = viper.GetBool("tui")
	plain = viper.GetBool("plain")
	debug = viper.GetBool("debug")
	modeName = viper.GetString("mode")

	if debug {
		log.SetLevel(log.DebugLevel)
	}
	if tui && plain {
		return errors.New("cannot use both tui and plain output")
	}
	if _, err := dialogue.ParseMode(modeName); err != nil {
		return err //nolint:wrapcheck
	}

	// Without a terminal there is nothing to draw on.
	if !term.IsTerminal(int(os.Stdout.Fd())) && !cmd.Flags().Changed("tui") {
		plain = true
	}
	return nil
}

// app owns everything a narration run needs.
type app struct {
	device  *audio.Device
	store   *cache.Manager
	player  *playback.Player
	metrics *metrics.Metrics
	seq     *dialogue.Sequencer
}

func newApp(cfg dialogue.Config) (*app, error) {
	a := &app{}

	deviceType, _ := audio.ParseContextType(cfg.Audio.Device)
	a.device = audio.NewDevice(audio.Options{
		Type:         deviceType,
		Format:       audio.Format{SampleRate: cfg.Audio.SampleRate, Channels: audio.Channels},
		BufferSize:   cfg.Audio.BufferSize,
		ReadyTimeout: audio.DefaultOptions().ReadyTimeout,
	})

	var store cache.Cache
	if cfg.Cache.Enabled {
		m, err := openCache(cfg.Cache)
		if err != nil {
			log.Warn("Speech cache disabled", "error", err)
		} else {
			a.store, store = m, m
		}
	}

	services, err := service.New(cfg, store)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	a.player = playback.NewPlayer(a.device, playbackOptions(cfg.Playback))

	var clicker fallback.Clicker = fallback.NopClicker{}
	if cfg.Fallback.Ticks {
		clicker = fallback.NewDeviceClicker(a.device, cfg.Fallback.TickVolume)
	}
	typewriter := &fallback.Typewriter{
		Interval:     cfg.Fallback.RevealInterval,
		TickInterval: cfg.Fallback.TickInterval,
		Pulse:        fallback.DefaultPulse,
		Clicker:      clicker,
	}

	var hooks dialogue.Hooks
	if metricsAddr != "" {
		a.metrics = metrics.New()
		hooks = a.metrics.Hooks()
		if a.store != nil {
			a.metrics.WatchCache(a.store)
		}
	}

	a.seq = dialogue.NewSequencer(services.Generator, services.Synthesizer, a.player, typewriter,
		dialogue.NewDisplay(), cfg.Sequencer, hooks)
	return a, nil
}

func openCache(cfg dialogue.CacheConfig) (*cache.Manager, error) {
	dir := cfg.Dir
	if dir == "" {
		base, err := gap.NewScope(gap.User, "narrator").CacheDir()
		if err != nil {
			return nil, fmt.Errorf("unable to find cache directory: %w", err)
		}
		dir = filepath.Join(base, "speech")
	}
	c := cache.DefaultConfig()
	c.Dir = dir
	c.MemoryCapacity = cfg.MemoryCapacity
	c.DiskCapacity = cfg.DiskCapacity
	c.CompressionLevel = cfg.CompressionLevel
	return cache.NewManager(c) //nolint:wrapcheck
}

func playbackOptions(cfg dialogue.PlaybackConfig) playback.Options {
	return playback.Options{
		FrameInterval:  cfg.FrameInterval,
		AnalysisWindow: cfg.AnalysisWindow,
		Volume:         cfg.Volume,
	}
}

// reload applies a changed config file to the running app. Device, service
// and cache settings need a restart.
func (a *app) reload() {
	cfg, err := dialogue.LoadConfigFromViper()
	if err != nil {
		log.Warn("Ignoring config change", "error", err)
		return
	}
	a.seq.SetConfig(cfg.Sequencer)
	a.player.SetOptions(playbackOptions(cfg.Playback))
	log.Info("Configuration reloaded", "path", viper.ConfigFileUsed())
}

func (a *app) close() {
	a.seq.Shutdown()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn("Unable to close speech cache", "error", err)
		}
	}
	if err := a.device.Close(); err != nil {
		log.Warn("Unable to close audio device", "error", err)
	}
}

func execute(cmd *cobra.Command, _ []string) error {
	cfg, err := dialogue.LoadConfigFromViper()
	if err != nil {
		return err //nolint:wrapcheck
	}
	mode, _ := dialogue.ParseMode(modeName)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.metrics != nil {
		go func() {
			if err := a.metrics.Serve(ctx, metricsAddr); err != nil {
				log.Error("Metrics server failed", "error", err)
			}
		}()
	}

	if viper.ConfigFileUsed() != "" {
		viper.OnConfigChange(func(fsnotify.Event) { a.reload() })
		viper.WatchConfig()
	}

	if plain {
		return narratePlain(ctx, a.seq, mode, topic, os.Stdout)
	}
	return runTUI(a.seq, mode, cmd.Flags().Changed("mode"))
}

func runTUI(seq *dialogue.Sequencer, mode dialogue.Mode, autoStart bool) error {
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	cfg.StartMode = mode
	cfg.StartTopic = topic
	cfg.AutoStart = autoStart

	if _, err := ui.NewProgram(cfg, seq).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
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
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")
	rootCmd.Flags().StringVarP(&modeName, "mode", "m", dialogue.ModeIntro.String(), "script to narrate (intro, tour, challenge, reward, scouting, menu)")
	rootCmd.Flags().StringVarP(&topic, "topic", "T", "", "what the script should be about")
	rootCmd.Flags().BoolVarP(&tui, "tui", "t", false, "show the narrator panel")
	rootCmd.Flags().BoolVarP(&plain, "plain", "p", false, "print lines instead of drawing the panel")
	rootCmd.Flags().String("service", "", "dialogue and speech backend (mock, http)")
	rootCmd.Flags().String("endpoint", "", "backend URL for the http service")
	rootCmd.Flags().String("device", "", "audio output (auto, oto, mock)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	_ = viper.BindPFlag("tui", rootCmd.Flags().Lookup("tui"))
	_ = viper.BindPFlag("plain", rootCmd.Flags().Lookup("plain"))
	_ = viper.BindPFlag("mode", rootCmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("service.kind", rootCmd.Flags().Lookup("service"))
	_ = viper.BindPFlag("service.endpoint", rootCmd.Flags().Lookup("endpoint"))
	_ = viper.BindPFlag("audio.device", rootCmd.Flags().Lookup("device"))

	viper.SetDefault("mode", dialogue.ModeIntro.String())
	viper.SetDefault("service.kind", "mock")
	viper.SetDefault("audio.device", "auto")

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "narrator")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "narrator")}, dirs...)
	}

	if c := os.Getenv("NARRATOR_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("narrator")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("narrator")
	viper.SetEnvKeyReplacer(envKeyReplacer)
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

	configFile = filepath.Join(dirs[0], "narrator.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
		return
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		log.Warn("Could not parse configuration file", "err", err)
	}
}
