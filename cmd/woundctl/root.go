package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/woundtrack/internal/core"
)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "woundctl",
		Short:         "woundctl - inspect and maintain the local wound photo gallery",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default $CONFIG_PATH or ./config.yaml)")

	open := func() (*core.CoreService, error) {
		return openCoreService(configPath)
	}
	rootCmd.AddCommand(newListCmd(open))
	rootCmd.AddCommand(newGalleryCmd(open))
	rootCmd.AddCommand(newDeleteCmd(open))
	rootCmd.AddCommand(newNoteCmd(open))
	rootCmd.AddCommand(newClassifyCmd(open))
	rootCmd.AddCommand(newImportCmd(open))
	rootCmd.AddCommand(newReminderCmd(open))
	return rootCmd
}

type openFunc func() (*core.CoreService, error)

// openCoreService loads the config the same way the server does. Without
// any config file the defaults apply. The CLI never drives a camera.
func openCoreService(configPath string) (*core.CoreService, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	config.Capture.Device = core.CaptureDeviceNone
	return core.NewCoreService(config, nil)
}

func loadConfig(configPath string) (*core.ServiceConfig, error) {
	explicit := configPath != ""
	if !explicit {
		configPath, explicit = core.ConfigPath()
	}

	config, err := core.LoadConfig(configPath)
	if err == nil {
		return config, nil
	}
	if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	config = &core.ServiceConfig{}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default configuration: %w", err)
	}
	return config, nil
}
