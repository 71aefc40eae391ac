package cmds

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/dialbench/pkg/agent"
	"github.com/go-go-golems/dialbench/pkg/settings"
	"github.com/go-go-golems/dialbench/pkg/transcript"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured agent over a range of tasks",
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlags(cmd, map[string]string{
			"agent.strategy": "agent-strategy",
			"env.name":       "env",
			"env.split":      "task-split",
			"user.mode":      "user-mode",
			"user.model":     "user-model",
			"start-index":    "start-index",
			"end-index":      "end-index",
			"task-ids":       "task-ids",
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		s, err := loadSettings()
		cobra.CheckErr(err)
		cobra.CheckErr(s.Validate())
		verbose := viper.GetBool("verbose")
		s.Agent.Dialogflow.Verbose = s.Agent.Dialogflow.Verbose || verbose

		ctx := cmd.Context()
		e, err := newEnvironment(s)
		cobra.CheckErr(err)

		a, closeAgent, err := newAgent(ctx, s)
		cobra.CheckErr(err)
		defer func() {
			if err := closeAgent(); err != nil {
				log.Warn().Err(err).Msg("could not close agent")
			}
		}()

		indices, err := taskIndices(
			viper.GetInt("start-index"),
			viper.GetInt("end-index"),
			viper.GetIntSlice("task-ids"),
			e.Tasks().Len(),
		)
		cobra.CheckErr(err)

		out := cmd.OutOrStdout()
		summary := &runSummary{}
		for _, idx := range indices {
			if ctx.Err() != nil {
				break
			}
			log.Info().Int("task", idx).Str("env", s.Env.Name).Msg("running task")
			res, err := a.Act(ctx, e, idx)
			if err != nil {
				log.Error().Stack().Err(err).Int("task", idx).Msg("task failed")
				summary.failed++
				continue
			}
			summary.add(res)
			// the dialogue driver renders its own turns when verbose
			if verbose && s.Agent.Strategy != settings.StrategyDialogflow {
				transcript.NewRenderer(out).Render(res.Messages)
			}
			printResult(out, idx, res)
		}
		summary.print(out)
	},
}

type runSummary struct {
	count   int
	failed  int
	reward  float64
	cost    float64
	errored int
}

func (r *runSummary) add(res *agent.Result) {
	r.count++
	r.reward += res.Reward
	r.cost += res.TotalCost
	if _, ok := res.Info["error"]; ok {
		r.errored++
	}
}

func (r *runSummary) print(w io.Writer) {
	avg := 0.0
	if r.count > 0 {
		avg = r.reward / float64(r.count)
	}
	_, _ = fmt.Fprintf(w, "tasks: %d, failed: %d, agent errors: %d, average reward: %.3f, total cost: $%.4f\n",
		r.count, r.failed, r.errored, avg, r.cost)
}

func printResult(w io.Writer, idx int, res *agent.Result) {
	style := failStyle
	if res.Reward == 1 {
		style = passStyle
	}
	line := fmt.Sprintf("task %d: reward %.1f, cost $%.4f", idx, res.Reward, res.TotalCost)
	if e, ok := res.Info["error"]; ok {
		line += fmt.Sprintf(" (error: %v)", e)
	}
	_, _ = fmt.Fprintln(w, style.Render(line))
}

// taskIndices resolves the task selection flags; explicit ids win over the range,
// and an end of -1 means up to the last task.
func taskIndices(start, end int, ids []int, n int) ([]int, error) {
	if len(ids) > 0 {
		for _, id := range ids {
			if id < 0 || id >= n {
				return nil, errors.Errorf("task id %d out of range [0, %d)", id, n)
			}
		}
		return ids, nil
	}
	if end < 0 || end > n {
		end = n
	}
	if start < 0 || start > end {
		return nil, errors.Errorf("invalid task range [%d, %d)", start, end)
	}
	ret := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		ret = append(ret, i)
	}
	return ret, nil
}

func init() {
	RunCmd.Flags().String("agent-strategy", "dialogflow", "Agent to evaluate (dialogflow, tool-calling)")
	RunCmd.Flags().String("env", "retail", "Environment (retail, airline)")
	RunCmd.Flags().String("task-split", "test", "Task split (train, test, dev)")
	RunCmd.Flags().String("user-mode", "naive", "User simulator (naive, human)")
	RunCmd.Flags().String("user-model", "gpt-4", "Model of the simulated user")
	RunCmd.Flags().Int("start-index", 0, "First task index")
	RunCmd.Flags().Int("end-index", -1, "End task index, exclusive (-1 for all)")
	RunCmd.Flags().IntSlice("task-ids", nil, "Explicit task indices to run")
}

// bindFlags binds command flags to settings keys. Commands share keys, so this
// runs for the executing command only.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		cobra.CheckErr(viper.BindPFlag(key, cmd.Flags().Lookup(flag)))
	}
}
