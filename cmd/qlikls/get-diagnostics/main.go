package get_diagnostics

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/qlikls/pkg/completion"
	"github.com/walteh/qlikls/pkg/diagnostic"
	"github.com/walteh/qlikls/pkg/finder"
	"github.com/walteh/qlikls/pkg/grammar"
	"github.com/walteh/qlikls/pkg/tokenizer"
)

type Handler struct {
	fs         afero.Fs
	out        io.Writer
	dir        string
	extensions []string
	format     string // vscode, json
	variables  []string
}

func NewGetDiagnosticsCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "get-diagnostics [dir]",
		Short: "get diagnostics for every Qlik script under a directory",
	}

	cmd.Flags().StringSliceVar(&me.extensions, "extensions", finder.DefaultExtensions, "the extensions of the script files to check")
	cmd.Flags().StringVar(&me.format, "format", "vscode", "the format of the diagnostics (vscode, json)")
	cmd.Flags().StringSliceVar(&me.variables, "variable", nil, "known user variables; enables unknown variable warnings")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.dir = args[0]
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

// FileDiagnostics is the json output for one script.
type FileDiagnostics struct {
	File        string                  `json:"file"`
	Diagnostics []diagnostic.Diagnostic `json:"diagnostics"`
}

func (me *Handler) Run(ctx context.Context) error {
	g, err := grammar.Load(ctx)
	if err != nil {
		return errors.Errorf("loading grammar: %w", err)
	}
	tok := tokenizer.New(g)

	var vars []completion.UserVariable
	if me.variables != nil {
		vars = completion.UserVariablesFromNames(me.variables)
	}
	gen := diagnostic.NewDefaultGenerator(g, vars)

	f := finder.NewDefaultFinder(me.fs)
	paths, err := f.FindScripts(ctx, me.dir, me.extensions)
	if err != nil {
		return errors.Errorf("finding scripts: %w", err)
	}
	files, err := f.ReadScripts(paths)
	if err != nil {
		return err
	}

	var results []FileDiagnostics
	for _, file := range files {
		found := gen.Generate(ctx, tok.NewDocument(string(file.Content)))
		results = append(results, FileDiagnostics{File: file.Path, Diagnostics: found.All()})
	}

	switch me.format {
	case "json":
		enc := json.NewEncoder(me.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return errors.Errorf("writing diagnostics: %w", err)
		}
	case "vscode":
		formatter := diagnostic.NewVSCodeFormatter()
		for _, r := range results {
			out, err := formatter.Format(&diagnostic.Diagnostics{Errors: r.Diagnostics})
			if err != nil {
				return errors.Errorf("formatting diagnostics for %s: %w", r.File, err)
			}
			if _, err := me.out.Write(append(out, '\n')); err != nil {
				return errors.Errorf("writing diagnostics: %w", err)
			}
		}
	default:
		return errors.Errorf("unknown format %q", me.format)
	}

	return nil
}
