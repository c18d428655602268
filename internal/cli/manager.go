package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"worktreectl/internal/cli/commands"
)

// Manager handles CLI operations
type Manager struct {
	deps    *commands.Deps
	rootCmd *cobra.Command
}

// New creates a CLI manager with every command registered
func New(deps *commands.Deps) *Manager {
	level := ""
	if deps.Config != nil {
		level = deps.Config.Log.Level
	}

	m := &Manager{
		deps:    deps,
		rootCmd: createRootCommand(level),
	}
	m.setupCommands()
	return m
}

// SetOutput redirects command output, used by tests
func (m *Manager) SetOutput(out, errOut io.Writer) {
	m.rootCmd.SetOut(out)
	m.rootCmd.SetErr(errOut)
}

// Execute executes the CLI with the given arguments
func (m *Manager) Execute(args []string) error {
	return m.ExecuteWithContext(context.Background(), args)
}

// ExecuteWithContext executes the CLI with the given arguments and context
func (m *Manager) ExecuteWithContext(ctx context.Context, args []string) error {
	m.rootCmd.SetArgs(args)
	return m.rootCmd.ExecuteContext(ctx)
}

func (m *Manager) setupCommands() {
	for _, cmd := range commands.LifecycleCommands(m.deps) {
		m.rootCmd.AddCommand(cmd)
	}

	for _, cmd := range commands.InspectCommands(m.deps) {
		m.rootCmd.AddCommand(cmd)
	}

	for _, cmd := range commands.ServerCommands(m.deps) {
		m.rootCmd.AddCommand(cmd)
	}

	configCmd := &cobra.Command{
		Use:     "config",
		Short:   "Configuration commands",
		Aliases: []string{"cfg"},
	}
	for _, cmd := range commands.ConfigCommands(m.deps) {
		configCmd.AddCommand(cmd)
	}
	m.rootCmd.AddCommand(configCmd)
}
