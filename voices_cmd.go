package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/readalong/internal/synth"
)

var voicesCmd = &cobra.Command{
	Use:     "voices [FILTER]",
	Short:   "List the voices of the speech service",
	Long:    paragraph(fmt.Sprintf("\n%s the voices the speech service offers, optionally fuzzy-filtered.", keyword("List"))),
	Example: paragraph("readalong voices\nreadalong voices sh"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		voices := synth.NewHTTPCatalog(cfg.HTTPConfig(envCfg)).Voices(ctx)

		var pattern string
		if len(args) > 0 {
			pattern = args[0]
		}
		return printVoices(os.Stdout, filterVoices(voices, pattern), cfg.Speech.Voice)
	},
}

// filterVoices returns voices matching pattern, best match first. An empty
// pattern keeps every voice in catalog order.
func filterVoices(voices []string, pattern string) []string {
	if pattern == "" {
		return voices
	}
	matches := fuzzy.Find(pattern, voices)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = voices[m.Index]
	}
	return out
}

func printVoices(w io.Writer, voices []string, current string) error {
	if len(voices) == 0 {
		_, err := fmt.Fprintln(w, "No matching voices.")
		return err //nolint:wrapcheck
	}
	for _, v := range voices {
		line := "  " + v
		if v == current {
			line = "* " + keyword(v)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err //nolint:wrapcheck
		}
	}
	return nil
}
