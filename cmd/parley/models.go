package main

import (
	"fmt"

	"github.com/go-go-golems/parley/pkg/gateway"
	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models each configured provider offers",
	RunE: func(cmd *cobra.Command, args []string) error {
		stepSettings, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		gw := gateway.NewGateway(stepSettings)
		factory := gateway.NewStandardEngineFactory()

		providerFlag, _ := cmd.Flags().GetString("provider")
		providers := factory.SupportedProviders()
		if providerFlag != "" {
			providers = []settings.Provider{settings.Provider(providerFlag)}
		}

		for _, provider := range providers {
			models, err := gw.ListModels(cmd.Context(), provider)
			if err != nil {
				fmt.Printf("%s: %s\n", provider, err)
				continue
			}
			fmt.Printf("%s:\n", provider)
			for _, model := range models {
				fmt.Printf("  %s\n", model)
			}
		}
		return nil
	},
}
