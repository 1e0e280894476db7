package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/CZERTAINLY/procrun/internal/model"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var flagConfigForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage procrun configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Store the default configuration, to PATH or the user config directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  doConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration in use",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return encodeConfig(cmd.OutOrStdout(), config)
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&flagConfigForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func doConfigInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(userConfigPath, "procrun.yaml")
	if len(args) == 1 {
		path = args[0]
	} else if userConfigPath == "" {
		return errors.New("no user config directory, pass the PATH")
	}

	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !flagConfigForce {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s exists, use --force to overwrite it", path)
	}
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := encodeConfig(f, model.DefaultConfig()); err != nil {
		return fmt.Errorf("storing configuration: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func encodeConfig(w io.Writer, cfg model.Config) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
