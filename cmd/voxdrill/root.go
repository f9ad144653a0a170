package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrWong99/voxdrill/internal/app"
	"github.com/MrWong99/voxdrill/internal/config"
)

// cli holds state shared by all subcommands. It is filled by the root
// command's PersistentPreRunE.
type cli struct {
	configPath string
	envFile    string

	// configFromFile is false when no config file exists and defaults are
	// in use.
	configFromFile bool

	cfg      *config.Config
	levelVar *slog.LevelVar
}

func newRootCmd() *cobra.Command {
	c := &cli{levelVar: new(slog.LevelVar)}

	root := &cobra.Command{
		Use:   "voxdrill",
		Short: "Adaptive voice interview practice engine",
		Long: `voxdrill breaks long-form interview questions into short, keyword-scoped
micro-questions, scores spoken answers by concept coverage and tracks each
learner's progress.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the config is parsed")

	root.AddCommand(
		newServeCmd(c),
		newPracticeCmd(c),
		newHistoryCmd(c),
		newQuestionsCmd(c),
		newMCPCmd(c),
		newTokenCmd(c),
	)
	return root
}

// setup loads the dotenv file and the config, and installs the logger.
// A missing config file is only an error when --config was given.
func (c *cli) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", c.envFile, err)
	}

	cfg, err := config.Load(c.configPath)
	switch {
	case err == nil:
		c.configFromFile = true
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
	default:
		return err
	}
	c.cfg = cfg

	c.levelVar.Set(cfg.Server.LogLevel.SlogLevel())
	// Logs go to stderr so that stdout stays free for the MCP protocol and
	// terminal practice output.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.levelVar})))
	return nil
}

// newApp builds the application from the loaded config.
func (c *cli) newApp(ctx context.Context, opts ...app.Option) (*app.App, error) {
	opts = append([]app.Option{app.WithLevelVar(c.levelVar)}, opts...)
	return app.New(ctx, c.cfg, opts...)
}
