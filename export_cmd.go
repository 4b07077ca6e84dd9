package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/readalong/internal/audiobook"
	"github.com/dgnsrekt/readalong/internal/pages"
	"github.com/dgnsrekt/readalong/internal/synth"
)

// ffmpegTimeout bounds one encoder run.
const ffmpegTimeout = 10 * time.Minute

var (
	outputPath string

	exportCmd = &cobra.Command{
		Use:   "export FILE",
		Short: "Narrate a whole document into an audiobook",
		Long: paragraph(fmt.Sprintf("\n%s a text or markdown file into one audio file. Markdown chapters become audiobook chapters in "+
			"m4b and wav output. Press ctrl+c to stop early and keep what was narrated so far.", keyword("Narrate"))),
		Example: paragraph("readalong export book.md\nreadalong export --format mp3 -o book.mp3 book.md"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), args[0])
		},
	}
)

func init() {
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: document name with the format's extension)")
	exportCmd.Flags().String("format", "", "audiobook format: wav, mp3 or m4b")
	_ = viper.BindPFlag("export.format", exportCmd.Flags().Lookup("format"))
}

func runExport(ctx context.Context, path string) error {
	doc, err := pages.Load(path, cfg.Playback.PageLines)
	if err != nil {
		return fmt.Errorf("unable to open document: %w", err)
	}

	opts := cfg.ExportOptions(doc.Title)
	if opts.Format != audiobook.FormatWAV {
		if err := audiobook.CheckTools(); err != nil {
			return fmt.Errorf("%s export needs ffmpeg: %w", opts.Format, err)
		}
	}

	out := outputPath
	if out == "" {
		out = strings.TrimSuffix(doc.Path, filepath.Ext(doc.Path)) + opts.Format.Ext()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	bar := newProgressBar()
	opts.OnProgress = bar.update

	tmp, err := os.CreateTemp(filepath.Dir(out), "."+filepath.Base(out)+".*")
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	client := synth.NewRetrying(synth.NewHTTPClient(cfg.HTTPConfig(envCfg)), cfg.RetryPolicy())
	assembler := audiobook.NewAssembler(client, audiobook.Exec{Timeout: ffmpegTimeout})

	log.Info("export started", "path", doc.Path, "format", opts.Format, "voice", opts.Voice)
	res, err := assembler.Build(ctx, doc, tmp, opts)
	bar.done()
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("unable to write output file: %w", cerr)
	}
	if err != nil {
		if errors.Is(err, audiobook.ErrNothingToExport) && ctx.Err() != nil {
			return errors.New("export canceled before any section was narrated")
		}
		return fmt.Errorf("export failed: %w", err)
	}

	if err := os.Rename(tmp.Name(), out); err != nil {
		return fmt.Errorf("unable to write output file: %w", err)
	}

	summary := fmt.Sprintf("Wrote %s (%s, %s, %d chapters)", keyword(out),
		humanize.Bytes(uint64(res.Bytes)), //nolint:gosec
		res.Duration.Round(time.Second), len(res.Chunks))
	fmt.Println(summary)
	if res.Skipped > 0 {
		fmt.Println(faint(fmt.Sprintf("%d sections failed to narrate and were left out, see the log for details.", res.Skipped)))
	}
	if res.Partial {
		fmt.Println(faint("Export was stopped early, the file holds the sections finished so far."))
	}
	log.Info("export finished", "path", out, "bytes", res.Bytes, "partial", res.Partial, "skipped", res.Skipped)
	return nil
}

// progressBar draws export progress on stderr when it is a terminal.
type progressBar struct {
	model progress.Model
	tty   bool
}

func newProgressBar() *progressBar {
	w := min(int(width)-20, 60) //nolint:gosec
	return &progressBar{
		model: progress.New(progress.WithDefaultGradient(), progress.WithWidth(max(w, 10))),
		tty:   term.IsTerminal(int(os.Stderr.Fd())),
	}
}

func (b *progressBar) update(p audiobook.Progress) {
	if !b.tty {
		log.Debug("export progress", "section", p.Section, "sections", p.Sections, "chars", p.Processed)
		return
	}
	fmt.Fprintf(os.Stderr, "\r%s %d/%d", b.model.ViewAs(p.Fraction()), p.Section, p.Sections)
}

func (b *progressBar) done() {
	if b.tty {
		fmt.Fprintln(os.Stderr)
	}
}
