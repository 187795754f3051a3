package tokenize

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/qlikls/pkg/finder"
	"github.com/walteh/qlikls/pkg/grammar"
	"github.com/walteh/qlikls/pkg/tokenizer"
)

type Handler struct {
	fs             afero.Fs
	out            io.Writer
	patterns       []string
	skipWhitespace bool
}

// Line is one output record: the tokens of one line of one file.
type Line struct {
	File   string            `json:"file"`
	Line   int               `json:"line"`
	State  tokenizer.State   `json:"state"`
	Tokens []tokenizer.Token `json:"tokens"`
}

func NewTokenizeCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "tokenize [glob...]",
		Short: "print the tokens of Qlik scripts as JSON lines",
	}

	cmd.Flags().BoolVar(&me.skipWhitespace, "skip-whitespace", true, "leave whitespace tokens out of the output")
	cmd.Args = cobra.MinimumNArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.patterns = args
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	g, err := grammar.Load(ctx)
	if err != nil {
		return errors.Errorf("loading grammar: %w", err)
	}
	tok := tokenizer.New(g)

	f := finder.NewDefaultFinder(me.fs)
	paths, err := f.Glob(ctx, me.patterns...)
	if err != nil {
		return errors.Errorf("finding scripts: %w", err)
	}
	if len(paths) == 0 {
		return errors.Errorf("no files match %v", me.patterns)
	}

	files, err := f.ReadScripts(paths)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(me.out)
	for _, file := range files {
		doc := tok.NewDocument(string(file.Content))
		zerolog.Ctx(ctx).Debug().Str("file", file.Path).Int("lines", doc.LineCount()).Msg("tokenized")

		for i := 0; i < doc.LineCount(); i++ {
			rec := Line{
				File:   file.Path,
				Line:   i,
				State:  doc.StartState(i),
				Tokens: make([]tokenizer.Token, 0, len(doc.Tokens(i))),
			}
			for _, t := range doc.Tokens(i) {
				if me.skipWhitespace && t.Kind == tokenizer.KindWhitespace {
					continue
				}
				rec.Tokens = append(rec.Tokens, t)
			}
			if err := enc.Encode(rec); err != nil {
				return errors.Errorf("writing tokens: %w", err)
			}
		}
	}

	return nil
}
