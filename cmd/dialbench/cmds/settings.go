package cmds

import (
	"github.com/spf13/cobra"
)

const redacted = "<redacted>"

var PrintSettingsCmd = &cobra.Command{
	Use:   "print-settings",
	Short: "Print the resolved settings as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := loadSettings()
		cobra.CheckErr(err)

		s = s.Clone()
		if s.LLM.OpenAIAPIKey != "" {
			s.LLM.OpenAIAPIKey = redacted
		}
		if s.LLM.GeminiAPIKey != "" {
			s.LLM.GeminiAPIKey = redacted
		}
		// the policy text can be long, the file name is enough
		if s.Agent.WikiFile != "" {
			s.Agent.ToolCalling.Wiki = ""
		}

		b, err := s.YAML()
		cobra.CheckErr(err)
		_, err = cmd.OutOrStdout().Write(b)
		cobra.CheckErr(err)
	},
}
