package main

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/goliatone/go-mountstore/tree"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cliOptions struct {
	verbose bool
	path    string
	indent  bool
}

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "mountctl",
		Short:         "Replay and inspect mounted store scenarios",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	opts := &cliOptions{}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log store activity to stderr")

	runCmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Replay a scenario and print the final root state as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, args[0], opts)
		},
	}
	runCmd.Flags().BoolVar(&opts.indent, "indent", false, "indent the final state")

	describeCmd := &cobra.Command{
		Use:   "describe <scenario.yaml>",
		Short: "Replay a scenario and list the leaf paths of the resulting state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return describeScenario(cmd, args[0], opts)
		},
	}
	describeCmd.Flags().StringVar(&opts.path, "path", "", "describe the merged state of the store mounted at path")

	root.AddCommand(runCmd, describeCmd)
	return root
}

func runScenario(cmd *cobra.Command, path string, opts *cliOptions) error {
	r, err := replay(cmd, path, opts)
	if err != nil {
		return err
	}
	var payload []byte
	if opts.indent {
		payload, err = json.MarshalIndent(r.store.GetState(), "", "  ")
	} else {
		payload, err = json.Marshal(r.store.GetState())
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
	return err
}

func describeScenario(cmd *cobra.Command, path string, opts *cliOptions) error {
	r, err := replay(cmd, path, opts)
	if err != nil {
		return err
	}
	state, err := r.state(opts.path)
	if err != nil {
		return err
	}
	for _, field := range tree.Describe(state) {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", field.Path, field.Type); err != nil {
			return err
		}
	}
	return nil
}

func replay(cmd *cobra.Command, path string, opts *cliOptions) (*replayer, error) {
	scenario, err := loadScenario(path)
	if err != nil {
		return nil, err
	}
	logger := zap.NewNop()
	if opts.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}
	r, err := newReplayer(scenario, cmd.OutOrStdout(), logger)
	if err != nil {
		return nil, err
	}
	if err := r.run(scenario.Steps); err != nil {
		return nil, err
	}
	return r, nil
}
