package main

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"mediastudio/internal/infra/credentials"
)

var providerEnv = map[string]string{
	credentials.ProviderOpenAI:     "OPENAI_API_KEY",
	credentials.ProviderGemini:     "GEMINI_API_KEY",
	credentials.ProviderElevenLabs: "ELEVENLABS_API_KEY",
	credentials.ProviderCloudinary: "CLOUDINARY_URL",
}

func newProviderKeyCommand(ctx *commandContext) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "providerkey <provider>",
		Short: "Store a provider API key in the credentials table",
		Long: `Stores the key used when the matching environment variable is empty.
Providers: ` + strings.Join(credentials.Providers, ", ") + `. Requires the postgres driver.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := strings.ToLower(strings.TrimSpace(args[0]))
			if !slices.Contains(credentials.Providers, provider) {
				return fmt.Errorf("unsupported provider %q", args[0])
			}
			key = strings.TrimSpace(key)
			if key == "" {
				key = strings.TrimSpace(os.Getenv(providerEnv[provider]))
			}
			if key == "" {
				return fmt.Errorf("%s key is required via --key or %s", provider, providerEnv[provider])
			}

			data, err := ctx.openData(cmd)
			if err != nil {
				return err
			}
			defer data.Close()
			if data.Credentials == nil {
				return errors.New("provider keys are stored in postgres; set DATABASE_DRIVER=postgres")
			}
			if err := data.Credentials.SetToken(cmd.Context(), provider, key, map[string]any{"source": "studioctl"}); err != nil {
				return fmt.Errorf("store %s key: %w", provider, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s key stored\n", provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Key to store (defaults to the provider's environment variable)")
	return cmd
}
