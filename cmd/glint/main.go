// Command glint is a thin wrapper around the root package's embedding
// facade: `run` executes a script, `check` parses and compiles it without
// running. Neither subcommand is specified beyond its interface — this
// binary exists only to exercise the embeddable API end-to-end.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glint-lang/glint"
)

func main() {
	os.Exit(glintMain())
}

// glintMain runs the command tree and reports an exit code, split out
// from main so the testscript harness in main_test.go can invoke it
// in-process via testscript.RunMain.
func glintMain() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "glint",
		Short:         "glint runs and checks glint scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newCheckCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a glint script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			source, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("reading %s: %w", filename, err)
			}

			v := glint.New(glint.Settings{ModuleDir: moduleDir(filename)})
			chunk, err := v.Compile(string(source), filename)
			if err != nil {
				return err
			}
			_, err = v.Run(chunk)
			return err
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Parse and compile a glint script without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			source, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("reading %s: %w", filename, err)
			}

			v := glint.New(glint.Settings{})
			if _, err := v.Compile(string(source), filename); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", filename)
			return nil
		},
	}
}

func moduleDir(scriptPath string) string {
	dir := scriptPath
	for i := len(dir) - 1; i >= 0; i-- {
		if dir[i] == '/' {
			return dir[:i]
		}
	}
	return "."
}
