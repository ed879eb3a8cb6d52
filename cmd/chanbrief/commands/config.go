package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hferr/chanbrief/pkg/chanbrief/config"
	"github.com/hferr/chanbrief/pkg/chanbrief/secrets"
)

// newConfigCmd creates the `chanbrief config` command, printing the
// resolved configuration with secrets masked.
func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Root().PersistentFlags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			cfg.DiscordToken = secrets.Resolve(cfg.DiscordToken, secrets.KeyDiscordToken, nil)
			cfg.Gemini.APIKey = secrets.Resolve(cfg.Gemini.APIKey, secrets.KeyGeminiAPIKey, nil)

			out, err := yaml.Marshal(cfg.Masked())
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}
