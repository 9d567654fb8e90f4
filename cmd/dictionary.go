package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/ats-scorer/internal/feedback"
)

var dictionaryCmd = &cobra.Command{
	Use:   "dictionary",
	Short: "Print the dictionary version, its stats and the feedback rules",
	Run: func(_ *cobra.Command, _ []string) {
		dict, err := loadDictionary(viper.GetString("dictionary"))
		if err != nil {
			log.Fatalf("loading dictionary: %v", err)
		}

		out := struct {
			Stats    any               `json:"stats"`
			Sections []string          `json:"sections"`
			Rules    []feedback.Status `json:"rules"`
		}{
			Stats:    dict.Stats(),
			Sections: dict.Sections(),
			Rules:    feedback.Describe(feedback.Rules()),
		}

		pretty, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Fprintln(os.Stdout, string(pretty))
	},
}

func init() {
	rootCmd.AddCommand(dictionaryCmd)
}
