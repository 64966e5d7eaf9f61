package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/go-go-golems/parley/pkg/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Branching chat sessions against multiple AI backends",
	Long: `parley keeps editable, branching conversation trees and streams
completions from openai, claude or a local ollama daemon.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging(cmd)
	},
	RunE: runChat,
}

func initLogging(cmd *cobra.Command) error {
	levelString, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(levelString)
	if err != nil {
		return err
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
	return nil
}

func loadSettings(cmd *cobra.Command) (*settings.StepSettings, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	ret, err := settings.Load(configFile)
	if err != nil {
		return nil, err
	}

	if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
		p := settings.Provider(provider)
		ret.Chat.Provider = &p
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		ret.Chat.Model = &model
	}
	return ret, nil
}

func openStore(cmd *cobra.Command) (*store.Store, func(), error) {
	path, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, nil, err
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, err
		}
		dir := filepath.Join(home, ".parley")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, err
		}
		path = filepath.Join(dir, "sessions.db")
	}

	kv, err := store.NewSQLiteKV(path)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.NewStore(kv)
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := kv.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close session store")
		}
	}
	return st, cleanup, nil
}

func main() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("db", "", "Path to the session database (default ~/.parley/sessions.db)")
	rootCmd.PersistentFlags().String("provider", "", "Provider to use (openai, claude, ollama)")
	rootCmd.PersistentFlags().String("model", "", "Model to use")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
