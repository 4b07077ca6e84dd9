package main

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/readalong/internal/audio"
	"github.com/dgnsrekt/readalong/internal/cache"
	"github.com/dgnsrekt/readalong/internal/pages"
	"github.com/dgnsrekt/readalong/internal/playback"
	"github.com/dgnsrekt/readalong/internal/segment"
	"github.com/dgnsrekt/readalong/internal/store"
	"github.com/dgnsrekt/readalong/internal/synth"
	"github.com/dgnsrekt/readalong/ui"
)

var (
	mouse     bool
	byChapter bool
	autoPlay  bool
	mute      bool

	readCmd = &cobra.Command{
		Use:   "read FILE",
		Short: "Open a document in the reader",
		Long: paragraph(fmt.Sprintf("\n%s a text or markdown file and narrate it. Markdown files can be read %s with --chapters.",
			keyword("Open"), keyword("by chapter"))),
		Example: paragraph("readalong read notes.md\nreadalong read --chapters --voice nova book.md"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd, args[0])
		},
	}
)

func addReadFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&mouse, "mouse", "m", true, "click a line to read from there")
	cmd.Flags().BoolVarP(&byChapter, "chapters", "c", false, "read markdown by chapter instead of by page")
	cmd.Flags().BoolVarP(&autoPlay, "play", "p", false, "start narrating right away")
	cmd.Flags().BoolVar(&mute, "mute", false, "do not open the audio device")
}

func init() {
	addReadFlags(readCmd)
}

func runRead(cmd *cobra.Command, path string) error {
	doc, err := pages.Load(path, cfg.Playback.PageLines)
	if err != nil {
		return fmt.Errorf("unable to open document: %w", err)
	}

	// Read environment to get debugging stuff
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}
	uiCfg.Path = doc.Path
	uiCfg.EnableMouse = mouse
	uiCfg.AutoPlay = autoPlay
	uiCfg.ByChapter = byChapter
	if byChapter && !pages.IsMarkdown(doc.Path) {
		log.Warn("chapters need a markdown file, reading by page", "path", doc.Path)
		uiCfg.ByChapter = false
	}

	client := synth.NewRetrying(synth.NewHTTPClient(cfg.HTTPConfig(envCfg)), cfg.RetryPolicy())
	loader := cache.NewLoader(cache.New(cfg.Cache.Capacity), client, cfg.Params())
	defer loader.Close()

	muted := cfg.Playback.Mute
	if cmd.Flags().Changed("mute") {
		muted = mute
	}
	player, err := newPlayer(muted)
	if err != nil {
		return err
	}

	statePath, err := stateFilePath()
	if err != nil {
		return err
	}

	host := ui.NewHost(doc, uiCfg.ByChapter)
	opts := playback.Options{
		Segmenter: newSegmenter(),
		Loader:    loader,
		Player:    player,
		Store:     store.NewFile(statePath),
		SkipBlank: cfg.Playback.SkipBlank,
	}
	if uiCfg.ByChapter {
		opts.Navigator = host
	} else {
		opts.Pager = host
	}

	session, err := playback.New(opts)
	if err != nil {
		return fmt.Errorf("unable to start playback: %w", err)
	}
	host.Bind(session)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		if err := session.Run(ctx); err != nil {
			log.Error("playback session stopped", "error", err)
		}
	}()

	p := ui.NewProgram(uiCfg, ui.Options{
		Host:      host,
		Session:   session,
		Catalog:   synth.NewHTTPCatalog(cfg.HTTPConfig(envCfg)),
		Stats:     loader.Stats,
		PageLines: cfg.Playback.PageLines,
	})
	_, err = p.Run()

	cancel()
	<-session.Done()

	if err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

// newSegmenter returns the configured segmentation service, or the built-in
// splitter when none is set.
func newSegmenter() segment.Segmenter {
	if rc, ok := cfg.RemoteConfig(); ok {
		log.Debug("using segmentation service", "url", rc.URL)
		return segment.NewRemote(rc)
	}
	return segment.NewSplitter()
}

// newPlayer opens the audio device. A muted reader plays into a mock player
// that only waits for the audio's duration.
func newPlayer(muted bool) (playback.Player, error) {
	if muted {
		pc := cfg.Playback.PlayerConfig()
		return audio.NewMockPlayer(audio.Format{SampleRate: pc.SampleRate, Channels: pc.Channels}), nil
	}

	p, err := audio.NewPlayer(cfg.Playback.PlayerConfig())
	if err != nil {
		return nil, fmt.Errorf("unable to open audio device (try --mute): %w", err)
	}
	if err := p.SetVolume(cfg.Playback.Volume); err != nil {
		return nil, fmt.Errorf("invalid volume: %w", err)
	}
	return p, nil
}

// stateFilePath returns where reading positions are kept.
func stateFilePath() (string, error) {
	if cfg.StateFile != "" {
		return cfg.StateFile, nil
	}
	p, err := gap.NewScope(gap.User, appName).DataPath("positions.json")
	if err != nil {
		return "", fmt.Errorf("could not find data directory: %w", err)
	}
	return p, nil
}
