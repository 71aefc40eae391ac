package cmds

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/go-go-golems/dialbench/pkg/dialogue"
	"github.com/go-go-golems/dialbench/pkg/dialogue/dialogflow"
	"github.com/go-go-golems/dialbench/pkg/env"
	"github.com/go-go-golems/dialbench/pkg/toolexport"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var DumpToolsCmd = &cobra.Command{
	Use:   "dump-tools",
	Short: "Write the environment's tool schemas for registration with the dialogue agent",
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlags(cmd, map[string]string{
			"env.name":  "env",
			"env.split": "task_split",
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		s, err := loadSettings()
		cobra.CheckErr(err)
		cobra.CheckErr(env.ValidateName(s.Env.Name, s.Env.Split))

		tools, err := newToolBackend(s).Tools(cmd.Context())
		cobra.CheckErr(err)
		tools, err = toolexport.Filter(tools, viper.GetString("tools"))
		cobra.CheckErr(err)
		docs, err := toolexport.Build(tools)
		cobra.CheckErr(err)

		path := filepath.Join(viper.GetString("output-dir"), toolexport.FileName(s.Env.Name))
		cobra.CheckErr(toolexport.WriteFile(path, docs))
		log.Info().Str("env", s.Env.Name).Str("split", s.Env.Split).Int("tools", len(docs)).Str("path", path).Msg("wrote tool schemas")
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
	},
}

var ListAgentToolsCmd = &cobra.Command{
	Use:   "list-agent-tools",
	Short: "List the tools registered with the dialogue agent",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := loadSettings()
		cobra.CheckErr(err)
		cobra.CheckErr(s.Dialogflow.Validate())

		ctx := cmd.Context()
		svc, err := dialogflow.NewService(ctx, s.Dialogflow)
		cobra.CheckErr(err)
		defer func() {
			_ = svc.Close()
		}()

		infos, err := dialogue.WithRetry(svc, s.Retry).ListTools(ctx)
		cobra.CheckErr(err)

		names := dialogue.NewToolNameMap(infos).Names()
		ids := make([]string, 0, len(names))
		for id, name := range names {
			ok, err := toolexport.MatchName(viper.GetString("filter"), name)
			cobra.CheckErr(err)
			if ok {
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return names[ids[i]] < names[ids[j]] })
		for _, id := range ids {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", names[id], id)
		}
	},
}

func init() {
	DumpToolsCmd.Flags().String("env", "retail", "Environment (retail, airline)")
	DumpToolsCmd.Flags().String("task_split", "test", "Task split (train, test, dev)")
	DumpToolsCmd.Flags().String("output-dir", ".", "Directory to write <env>_tools_info.txt to")
	DumpToolsCmd.Flags().String("tools", "", "Only export tools whose name matches this glob")
	cobra.CheckErr(viper.BindPFlag("output-dir", DumpToolsCmd.Flags().Lookup("output-dir")))
	cobra.CheckErr(viper.BindPFlag("tools", DumpToolsCmd.Flags().Lookup("tools")))

	ListAgentToolsCmd.Flags().String("filter", "", "Only list tools whose display name matches this glob")
	cobra.CheckErr(viper.BindPFlag("filter", ListAgentToolsCmd.Flags().Lookup("filter")))
}
