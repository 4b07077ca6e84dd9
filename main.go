// Package main provides the entry point for the readalong CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/readalong/internal/config"
)

const appName = "readalong"

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool

	// Set by validateOptions before any command runs.
	cfg    config.Config
	envCfg config.Env
	width  uint

	rootCmd = &cobra.Command{
		Use:   "readalong [FILE]",
		Short: "Listen to documents in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nRead text and markdown files %s, sentence by sentence.", keyword("out loud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runRead(cmd, args[0])
		},
	}
)

func validateOptions(cmd *cobra.Command) error {
	var err error
	envCfg, err = config.LoadEnv()
	if err != nil {
		return err //nolint:wrapcheck
	}
	if debug || envCfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	// The config and man commands must work with a broken config file.
	switch cmd.Name() {
	case configCmd.Name(), manCmd.Name():
		return nil
	}

	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	cfg, err = config.Load()
	if err != nil {
		return err //nolint:wrapcheck
	}
	if envCfg.Key() == "" {
		log.Warn("no API key set, requests to the speech service may be rejected")
	}

	width = terminalWidth()
	return nil
}

// terminalWidth returns the width of stdout, capped at 120, or 80 when
// stdout is not a terminal.
func terminalWidth() uint {
	var w uint
	if term.IsTerminal(int(os.Stdout.Fd())) {
		tw, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err == nil {
			w = uint(tw) //nolint:gosec
		}
		if w > 120 {
			w = 120
		}
	}
	if w == 0 {
		w = 80
	}
	return w
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
	// Assigned here rather than in the literal: validateOptions refers to
	// manCmd, which refers back to rootCmd (initialization cycle).
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return validateOptions(cmd)
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug output to the log file")
	rootCmd.PersistentFlags().String("voice", "", "voice to narrate with")
	rootCmd.PersistentFlags().Float64("speed", 0, "speech speed, 0.25 to 4")
	rootCmd.PersistentFlags().String("segmenter", "", "sentence segmentation service URL (default: built-in splitter)")
	addReadFlags(rootCmd)

	// Config bindings
	_ = viper.BindPFlag("speech.voice", rootCmd.PersistentFlags().Lookup("voice"))
	_ = viper.BindPFlag("speech.speed", rootCmd.PersistentFlags().Lookup("speed"))
	_ = viper.BindPFlag("segmentation.url", rootCmd.PersistentFlags().Lookup("segmenter"))

	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(readCmd, exportCmd, voicesCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, appName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, appName)}, dirs...)
	}

	if c := os.Getenv("READALONG_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(appName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(appName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], appName+".yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
