package get_completions

import (
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/qlikls/pkg/autocomplete"
	"github.com/walteh/qlikls/pkg/grammar"
	"github.com/walteh/qlikls/pkg/position"
)

type Handler struct {
	fs           afero.Fs
	out          io.Writer
	filePath     string
	line         int
	character    int
	settingsFile string
	variables    []string
	fields       []string
}

func NewGetCompletionsCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "get-completions [file-path] [line] [character]",
		Short: "get completions for a position in a Qlik script",
	}

	cmd.Flags().StringVar(&me.settingsFile, "settings", "", "YAML or HCL settings file")
	cmd.Flags().StringSliceVar(&me.variables, "variable", nil, "user variable names")
	cmd.Flags().StringSliceVar(&me.fields, "field", nil, "known field names")
	cmd.Args = cobra.ExactArgs(3)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.filePath = args[0]
		// line and character are zero-based; character counts bytes
		var err error
		me.line, err = strconv.Atoi(args[1])
		if err != nil {
			return errors.Errorf("invalid line number: %w", err)
		}
		me.character, err = strconv.Atoi(args[2])
		if err != nil {
			return errors.Errorf("invalid character number: %w", err)
		}
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

	var opts []autocomplete.Option
	if me.settingsFile != "" {
		settings, err := autocomplete.LoadSettings(me.fs, me.settingsFile)
		if err != nil {
			return err
		}
		g = settings.Extend(g)
		opts = append(opts, settings.Options()...)
	}

	if indent, err := autocomplete.IndentPatch(me.filePath); err == nil {
		opts = append([]autocomplete.Option{autocomplete.WithConfig(indent)}, opts...)
	}

	provider := autocomplete.New(ctx, g, opts...)
	defer provider.Dispose()

	if len(me.variables) > 0 {
		provider.SetVariableNames(me.variables)
	}
	if len(me.fields) > 0 {
		provider.SetKnownFields(me.fields)
	}

	content, err := afero.ReadFile(me.fs, me.filePath)
	if err != nil {
		return errors.Errorf("failed to read script file: %w", err)
	}

	res := provider.ProvideCompletions(string(content), position.Place{Line: me.line, Character: me.character})

	enc := json.NewEncoder(me.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return errors.Errorf("failed to write completions: %w", err)
	}

	return nil
}
