package highlight

import (
	"context"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/qlikls/pkg/grammar"
	"github.com/walteh/qlikls/pkg/highlight"
	"github.com/walteh/qlikls/pkg/tokenizer"
)

type Handler struct {
	fs        afero.Fs
	out       io.Writer
	filePath  string
	formatter string
	style     string
}

func NewHighlightCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "highlight [file-path]",
		Short: "print a Qlik script with syntax highlighting",
	}

	cmd.Flags().StringVar(&me.formatter, "formatter", "terminal256", "chroma formatter (terminal256, html, noop, ...)")
	cmd.Flags().StringVar(&me.style, "style", "monokai", "chroma style")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.filePath = args[0]
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

	content, err := afero.ReadFile(me.fs, me.filePath)
	if err != nil {
		return errors.Errorf("failed to read script file: %w", err)
	}

	doc := tokenizer.New(g).NewDocument(string(content))
	return highlight.Render(me.out, doc, me.formatter, me.style)
}
