package cmd

import (
	"fmt"

	"github.com/encodeous/strand/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prints the default configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := defaultConfigYaml()
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
	GroupID: "tools",
}

func defaultConfigYaml() (string, error) {
	cfg := state.DefaultLocalCfg()
	cfg.Routing.Path = "/run/strand/routing.sock"
	cfg.Forward.Path = "/run/strand/forward.sock"
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func init() {
	rootCmd.AddCommand(configCmd)
}
