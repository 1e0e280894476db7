package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"

	"github.com/CZERTAINLY/procrun/internal/log"
	"github.com/CZERTAINLY/procrun/internal/model"
	"github.com/CZERTAINLY/procrun/internal/run"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	userConfigPath string // /default/config/path/procrun on given OS
	configPath     string // actual config file used (if loaded)
	config         model.Config

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag

	closeLog = func() error { return nil }
)

func init() {
	if d, err := os.UserConfigDir(); err == nil {
		userConfigPath = filepath.Join(d, "procrun")
	}

	// root flags, PROCRUN_CONFIG and PROCRUN_VERBOSE work as well
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is procrun.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")
	viper.SetEnvPrefix("procrun")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// never print messages
	rootCmd.SilenceErrors = true

	// parse a config, setup logging
	rootCmd.PersistentPreRunE = initProcrun
	rootCmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		return closeLog()
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(shCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps the command error to the exit code of procrun, which is the
// child's own code whenever there is one.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var status exitStatus
	if errors.As(err, &status) {
		return int(status)
	}
	slog.Error("procrun failed", "err", err)
	var codeErr *run.ExitCodeError
	if errors.As(err, &codeErr) && codeErr.Code != 0 {
		return codeErr.Code
	}
	return 1
}

// exitStatus is returned by commands whose child exited with a non-zero
// code that was not enforced.
type exitStatus int

func (e exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

var rootCmd = &cobra.Command{
	Use:          "procrun",
	Short:        "Run external programs with line observers, capture and exit code enforcement",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provide version of a procrun",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Fprintln(out, "procrun: version info not available")
			return
		}

		if configPath != "" {
			fmt.Fprintf(out, "config:  %s\n", configPath)
		}
		fmt.Fprintf(out, "procrun: %s\n", info.Main.Version)
		fmt.Fprintf(out, "go:      %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Fprintf(out, "commit:  %s\n", s.Value)
			case "vcs.time":
				fmt.Fprintf(out, "date:    %s\n", s.Value)
			case "vcs.modified":
				fmt.Fprintf(out, "dirty:   %s\n", s.Value)
			}
		}
	},
}

func initProcrun(cmd *cobra.Command, _ []string) error {
	configPath = viper.GetString("config")
	if configPath == "" {
		for _, d := range []string{".", userConfigPath} {
			if d == "" {
				continue
			}
			path := filepath.Join(d, "procrun.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	if configPath == "" {
		config = model.DefaultConfig()
	} else {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		cfg, err := model.LoadConfig(f)
		if err != nil {
			for _, v := range model.Violations(err) {
				slog.Error(v.String(), v.Attr("violation"))
			}
			return fmt.Errorf("parsing config: %w", err)
		}
		config = *cfg
	}

	// initialize logging, --verbose has a precedence over config file
	w, closeFn, err := log.Open(config.Log.OutputOrDefault())
	if err != nil {
		return err
	}
	closeLog = closeFn
	opts := config.Log.Options()
	opts.Writer = w
	opts.Verbose = opts.Verbose || viper.GetBool("verbose")
	slog.SetDefault(log.New(opts))

	slog.Debug("procrun run", "configPath", configPath)
	slog.Debug("procrun run", "config", config)
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
