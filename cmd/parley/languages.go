package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/aretw0/parley/pkg/language"
	"github.com/spf13/cobra"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "Print the language catalog",
	Long:  `Prints every supported locale with its menu digit, voice and termination phrases, after applying overrides.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		catalog := language.Default()
		if cfg.LanguagesFile != "" {
			if catalog, err = language.LoadOverrides(cfg.LanguagesFile, catalog); err != nil {
				return err
			}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DIGIT\tKEY\tNAME\tLOCALE\tVOICE\tFAREWELL PHRASES")
		def := catalog.Default().Key
		for _, e := range catalog.Entries() {
			name := e.DisplayName
			if e.Key == def {
				name += " (default)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\n", e.Digit, e.Key, name, e.Locale, e.Voice, e.TerminationPhrases)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
