package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kitbuilder587/orbe-search/internal/domain"
	"github.com/kitbuilder587/orbe-search/internal/llm"
	"github.com/kitbuilder587/orbe-search/internal/service"
)

var askMode string

var askCmd = &cobra.Command{
	Use:   "ask [flags] <query...>",
	Short: "Run a single query through the pipeline and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := boot()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := cmd.Context()
		a := buildApp(ctx, cfg, logger)
		defer a.Close()

		if dir := cfg.Prompt.PersonaDir; dir != "" {
			if err := a.prompts.LoadDir(dir); err != nil {
				return fmt.Errorf("load personas: %w", err)
			}
		}

		req := &domain.QueryRequest{Text: strings.Join(args, " "), Mode: domain.ParseMode(askMode)}
		out, err := a.pipeline.Process(ctx, req)
		if err != nil {
			return err
		}
		return printOutcome(os.Stdout, out)
	},
}

func init() {
	askCmd.Flags().StringVarP(&askMode, "mode", "m", "", "Persona: chat, coder, business, creative or wizard")
}

func printOutcome(w io.Writer, out service.Outcome) error {
	switch o := out.(type) {
	case service.DirectAnswer:
		fmt.Fprintln(w, color.CyanString("direct match"))
		fmt.Fprintln(w, o.Payload.Response)
		return nil
	case service.GeneratedAnswer:
		return printStream(w, o.Stream)
	default:
		return fmt.Errorf("unexpected outcome %T", out)
	}
}

// printStream печатает токены по мере поступления.
func printStream(w io.Writer, s llm.Stream) error {
	defer s.Close()

	for {
		line, err := s.Next()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(w)
			return nil
		}
		if err != nil {
			fmt.Fprintln(w)
			return fmt.Errorf("read answer: %w", err)
		}

		c, err := llm.DecodeChunk(line)
		if err != nil {
			continue
		}
		if c.Error != "" {
			fmt.Fprintln(w)
			return errors.New(color.RedString(c.Error))
		}
		fmt.Fprint(w, c.Response)
		if c.Done {
			fmt.Fprintln(w)
			return nil
		}
	}
}
