package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hferr/chanbrief/pkg/chanbrief/secrets"
)

// newSecretCmd creates the `chanbrief secret` command group for managing
// credentials in the OS keyring.
func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage credentials in the OS keyring",
		Long: `Store credentials in the operating system keyring instead of .env
files or config.yaml. Supported names: discord_token, gemini_api_key.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <name>",
			Short: "Store a secret (prompts for the value)",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				name := args[0]
				if err := validSecretName(name); err != nil {
					return err
				}
				if !secrets.Available() {
					return fmt.Errorf("OS keyring is not available on this system")
				}
				value, err := secrets.ReadHidden(fmt.Sprintf("Value for %s: ", name))
				if err != nil {
					return err
				}
				if value == "" {
					return fmt.Errorf("empty value, nothing stored")
				}
				if err := secrets.Store(name, value); err != nil {
					return fmt.Errorf("storing secret: %w", err)
				}
				fmt.Printf("Stored %s in the OS keyring.\n", name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rm <name>",
			Short: "Remove a secret",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				name := args[0]
				if err := validSecretName(name); err != nil {
					return err
				}
				if err := secrets.Delete(name); err != nil {
					return fmt.Errorf("removing secret: %w", err)
				}
				fmt.Printf("Removed %s from the OS keyring.\n", name)
				return nil
			},
		},
	)
	return cmd
}

func validSecretName(name string) error {
	switch name {
	case secrets.KeyDiscordToken, secrets.KeyGeminiAPIKey:
		return nil
	}
	return fmt.Errorf("unknown secret name %q (expected %s or %s)",
		name, secrets.KeyDiscordToken, secrets.KeyGeminiAPIKey)
}
