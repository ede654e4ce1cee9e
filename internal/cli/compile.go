package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AaronLay10/ScriptGraph/internal/graph"
)

// Editors often write a file in several steps; events closer together
// than this are compiled once.
const watchDebounce = 100 * time.Millisecond

type CompileOptions struct {
	Entries []string
	Watch   bool
}

func NewCompileCommand(cli *CLI) *cobra.Command {
	opts := CompileOptions{}

	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a graph document to player code",
		Long: Highlight("scriptc compile <file>") + "\n\n" +
			"Compile a graph document (.json, .yaml or .yml) and print the\n" +
			"generated code. Diagnostics go to stderr. With --entry only the\n" +
			"given nodes are compiled, in order; otherwise every node that\n" +
			"starts a flow is.\n",
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Watch {
				return cli.watch(cmd.Context(), args[0], opts)
			}
			return cli.compileFile(args[0], opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Entries, "entry", "e", nil, "Entry node id (repeatable)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Recompile whenever the file changes")
	return cmd
}

func (c *CLI) compileFile(path string, opts CompileOptions) error {
	doc, err := graph.LoadFile(path)
	if err != nil {
		return err
	}

	result := c.svc.CompileDocument(doc, opts.Entries...)

	if c.Output == OutputJSON {
		c.renderJSON("compile", path, result, true)
	} else {
		c.renderDiagnostics(path, result.Diagnostics)
		if result.Code != "" {
			c.Println(result.Code)
		}
	}

	if result.HasErrors() {
		return errReported
	}
	return nil
}

// watch compiles path once, then again after every change until ctx is
// done. Compile failures are printed and do not stop the watch.
func (c *CLI) watch(ctx context.Context, path string, opts CompileOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors that save by rename replace the inode.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	c.recompile(path, opts)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				debounce = time.After(watchDebounce)
			}
		case <-debounce:
			debounce = nil
			c.recompile(path, opts)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(c.Err, color.RedString("watch error:"), err)
		}
	}
}

func (c *CLI) recompile(path string, opts CompileOptions) {
	if c.Output == OutputText {
		fmt.Fprintln(c.Err, Highlight("[%s] compiling %s", time.Now().Format(time.TimeOnly), path))
	}
	err := c.compileFile(path, opts)
	if err != nil && err != errReported {
		fmt.Fprintln(c.Err, color.RedString("Error:"), err)
	}
}
