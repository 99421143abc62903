// Command shaclearn composes physics environments from descriptions,
// rolls them out, and evaluates short-horizon actor-critic losses on
// the collected data.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/shaclearn/composer"
	"github.com/samuelfneumann/shaclearn/composer/descs"
	"github.com/samuelfneumann/shaclearn/experiment"
	"github.com/samuelfneumann/shaclearn/experiment/tracker"
	"github.com/samuelfneumann/shaclearn/sim"
	"github.com/samuelfneumann/shaclearn/sim/box2dsys"
	"github.com/samuelfneumann/shaclearn/utils/progressbar"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shaclearn",
	Short: "Composable physics environments and SHAC losses",
	Long: `shaclearn composes multi-body physics environments from component
descriptions, rolls them out in batches, and evaluates the losses of
Short-Horizon Actor-Critic on the collected data.`,
	SilenceUsage: true,
}

// Describe command flags
var (
	describeConfig bool
	describeFile   string
)

var describeCmd = &cobra.Command{
	Use:   "describe [env]",
	Short: "Describe a composed environment",
	Long: `Describe the components, edges, rewards, and observations of a
registered environment, or of a JSON description read with --file.
Without arguments, list the registered environments.`,
	Example: `  # List environments
  shaclearn describe

  # Describe an environment and print its system configuration
  shaclearn describe ant_chase_ma --config`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var desc *composer.Desc
		switch {
		case describeFile != "":
			data, err := os.ReadFile(describeFile)
			if err != nil {
				return fmt.Errorf("describe: %v", err)
			}
			if desc, err = composer.ParseDesc(data); err != nil {
				return fmt.Errorf("describe: %v", err)
			}
		case len(args) == 1:
			var err error
			if desc, err = descs.Get(args[0]); err != nil {
				return fmt.Errorf("describe: %v", err)
			}
		default:
			for _, name := range descs.Names() {
				fmt.Println(name)
			}
			return nil
		}

		env, err := composer.Create(desc, box2dsys.New)
		if err != nil {
			return fmt.Errorf("describe: %v", err)
		}
		if err := printEnv(env); err != nil {
			return fmt.Errorf("describe: %v", err)
		}
		if describeConfig {
			fmt.Println()
			fmt.Println(env.Composer().Metadata().ConfigText)
		}
		return nil
	},
}

func printEnv(env *composer.Env) error {
	m := env.Composer().Metadata()

	fmt.Println("Components:")
	for _, c := range m.Components {
		fmt.Printf("  %-12v %-10v bodies=%v actuators=%v\n", c.Name, c.Type,
			len(c.Bodies), len(c.Actuators))
	}
	if len(m.Edges) > 0 {
		fmt.Println("Edges:")
		for _, e := range m.Edges {
			fmt.Printf("  %-20v collide=%v pairs=%v\n", e.Key, e.CollideType,
				len(e.Pairs))
		}
	}
	if len(m.RewardFns) > 0 {
		fmt.Println("Rewards:")
		for _, r := range m.RewardFns {
			fmt.Printf("  %v\n", r.Name)
		}
	}
	if len(m.AgentGroups) > 0 {
		fmt.Println("Agent groups:")
		for _, g := range m.AgentGroups {
			fmt.Printf("  %-12v %v\n", g.Name, strings.Join(g.RewardNames, ", "))
		}
	}

	state, err := env.Reset(0)
	if err != nil {
		return err
	}
	initial, err := env.ObservationDict(state.Observation)
	if err != nil {
		return err
	}
	fmt.Println("Observation (at reset):")
	for _, span := range env.ObservationLayout() {
		v, _ := initial.Get(span.Name)
		fmt.Printf("  %-32v [%v:%v] %.3f\n", span.Name, span.Start,
			span.Start+span.Size, v)
	}
	fmt.Printf("Sizes: observation=%v action=%v reward=%v\n",
		env.ObservationSpec().Size, env.ActionSpec().Size,
		env.RewardSpec().Size)
	fmt.Printf("Options: dt=%v substeps=%v\n", m.GlobalOptions.Dt,
		m.GlobalOptions.Substeps)
	if n := sim.ActionSize(m.Config); n != env.ActionSpec().Size {
		log.Printf("Warning: configuration has %v actuators but the "+
			"environment takes %v actions", n, env.ActionSpec().Size)
	}
	return nil
}

// Rollout command flags
var (
	rolloutConfig   string
	rolloutEnv      string
	rolloutBatch    int
	rolloutHorizon  int
	rolloutSegments int
	rolloutSeed     uint64
	rolloutPolicy   string
	rolloutReturns  string
	rolloutFormat   string
)

var rolloutCmd = &cobra.Command{
	Use:   "rollout",
	Short: "Roll out an environment and evaluate SHAC losses",
	Long: `Roll out batches of episodes in a composed environment and report
the SHAC losses of each segment. The experiment is read from a JSON
configuration with --config, or built from the default configuration
of the environment given with --env. Flags override the configuration.`,
	Example: `  # Roll out ant_run with uniformly random actions
  shaclearn rollout --env ant_run --segments 10

  # Roll out an experiment which also fits a critic
  shaclearn rollout --config experiment.json --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var c experiment.Config
		switch {
		case rolloutConfig != "":
			data, err := os.ReadFile(rolloutConfig)
			if err != nil {
				return fmt.Errorf("rollout: %v", err)
			}
			if c, err = experiment.ParseConfig(data); err != nil {
				return fmt.Errorf("rollout: %v", err)
			}
		case rolloutEnv != "":
			c = experiment.DefaultConfig(rolloutEnv)
		default:
			return fmt.Errorf("rollout: one of --config or --env is required")
		}

		flags := cmd.Flags()
		if flags.Changed("batch") {
			c.Batch = rolloutBatch
		}
		if flags.Changed("horizon") {
			c.Horizon = rolloutHorizon
		}
		if flags.Changed("policy") {
			c.Policy = experiment.PolicyType(rolloutPolicy)
		}

		var trackers []tracker.Tracker
		var returns *tracker.Return
		if rolloutReturns != "" {
			returns = tracker.NewReturn(rolloutReturns)
			trackers = append(trackers, returns)
		}

		exp, err := c.CreateExp(rolloutSeed, trackers...)
		if err != nil {
			return fmt.Errorf("rollout: %v", err)
		}
		defer exp.Close()

		results := make([]map[string]float64, 0, rolloutSegments)
		bar := progressbar.New(os.Stderr, 40, rolloutSegments)
		for i := 0; i < rolloutSegments; i++ {
			seg, err := exp.RunSegment()
			if err != nil {
				bar.Close()
				return fmt.Errorf("rollout: segment %v: %v", i, err)
			}
			metrics := seg.Metrics.Map()
			metrics["mean_reward"] = seg.MeanReward
			metrics["mean_return"] = mat.Sum(seg.RewardsToGo.ColView(0)) /
				float64(c.Batch)
			if seg.Actions != nil {
				r, a := seg.Actions.Dims()
				norm := mat.Norm(seg.Actions, 2)
				metrics["mean_sq_action"] = norm * norm / float64(r*a)
			}
			if c.Critic != nil {
				metrics["critic_loss"] = seg.CriticLoss
			}
			results = append(results, metrics)

			bar.Increment()
			bar.SetMessage("policy_loss=%.4f v_loss=%.4f", seg.Metrics.PolicyLoss,
				seg.Metrics.VLoss)
			bar.Display()
		}
		bar.Close()

		if returns != nil {
			if err := exp.Save(); err != nil {
				return fmt.Errorf("rollout: %v", err)
			}
			log.Printf("saved %v episode returns to %v", len(returns.Data()),
				rolloutReturns)
		}
		return printResults(results)
	},
}

func printResults(results []map[string]float64) error {
	if rolloutFormat == "json" {
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("rollout: %v", err)
		}
		fmt.Println(string(out))
		return nil
	}

	for i, metrics := range results {
		keys := make([]string, 0, len(metrics))
		for k := range metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fields := make([]string, len(keys))
		for j, k := range keys {
			fields[j] = fmt.Sprintf("%v=%.6f", k, metrics[k])
		}
		fmt.Printf("segment %v: %v\n", i, strings.Join(fields, " "))
	}
	return nil
}

func init() {
	describeCmd.Flags().BoolVar(&describeConfig, "config", false,
		"print the text configuration of the composed system")
	describeCmd.Flags().StringVarP(&describeFile, "file", "f", "",
		"read the environment description from a JSON file")

	rolloutCmd.Flags().StringVarP(&rolloutConfig, "config", "c", "",
		"experiment configuration file")
	rolloutCmd.Flags().StringVarP(&rolloutEnv, "env", "e", "",
		"registered environment to roll out with the default configuration")
	rolloutCmd.Flags().IntVar(&rolloutBatch, "batch", 4, "number of rollouts")
	rolloutCmd.Flags().IntVar(&rolloutHorizon, "horizon", 32,
		"steps per rollout in each segment")
	rolloutCmd.Flags().IntVar(&rolloutSegments, "segments", 1,
		"number of segments to roll out")
	rolloutCmd.Flags().Uint64Var(&rolloutSeed, "seed", 0, "random seed")
	rolloutCmd.Flags().StringVar(&rolloutPolicy, "policy", "uniform",
		"policy selecting actions (zero, uniform)")
	rolloutCmd.Flags().StringVar(&rolloutReturns, "returns", "",
		"file to save episode returns to")
	rolloutCmd.Flags().StringVar(&rolloutFormat, "format", "text",
		"output format (text, json)")

	rootCmd.AddCommand(describeCmd, rolloutCmd)
}
