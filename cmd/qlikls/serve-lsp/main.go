package serve_lsp

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/qlikls/pkg/grammar"
	"github.com/walteh/qlikls/pkg/lsp"
)

type Handler struct {
	debug   bool
	version string
}

func NewServeLSPCommand(version string) *cobra.Command {
	me := &Handler{version: version}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdin/stdout",
	}

	cmd.Flags().BoolVar(&me.debug, "debug", false, "forward debug logging to the client")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	g, err := grammar.Load(ctx)
	if err != nil {
		return errors.Errorf("loading grammar: %w", err)
	}

	server := lsp.NewServer(ctx,
		lsp.WithGrammar(g),
		lsp.WithDebug(me.debug),
		lsp.WithVersion(me.version),
	)

	zerolog.Ctx(ctx).Info().Bool("debug", me.debug).Msg("starting language server")

	// stdout belongs to the protocol; logging stays on stderr until the
	// connection takes over
	if err := server.Run(ctx, lsp.NewReadWriteCloser(os.Stdin, os.Stdout)); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}
