package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/siet-lab/roomalloc/alloc"
)

var (
	// CLI flags shared across subcommands
	logLevel     string // log verbosity level
	policyPath   string // YAML policy bundle; defaults apply when empty
	scenarioPath string // YAML scenario (rooms, predictions, requests)

	// seed flags
	seed        int64  // master seed for synthetic scenario generation
	historyDays int    // days of synthetic occupancy history
	numRequests int    // synthetic request batch size
	outPath     string // output path for the generated scenario

	// simulate flags
	blockRooms   []string // room IDs to lock in the simulated run
	tierWeights  []string // tier=weight overrides, e.g. commercial=2.5
	idleOverride float64  // min idle threshold override; negative = unset
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "roomalloc",
	Short: "Constraint-based room allocation engine with what-if simulation",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		logrus.SetLevel(level)
		return nil
	},
}

// loadInputs reads the scenario and policy files named by the shared flags.
func loadInputs() (*alloc.Scenario, *alloc.Policy, error) {
	if scenarioPath == "" {
		return nil, nil, fmt.Errorf("--scenario is required")
	}
	sc, err := LoadScenario(scenarioPath)
	if err != nil {
		return nil, nil, err
	}
	pol := alloc.DefaultPolicy()
	if policyPath != "" {
		if pol, err = alloc.LoadPolicy(policyPath); err != nil {
			return nil, nil, err
		}
	}
	return sc, pol, nil
}

// allocateCmd runs one confirmed allocation over a scenario file.
var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Run a confirmed allocation over a scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, pol, err := loadInputs()
		if err != nil {
			return err
		}
		engine, err := alloc.NewEngine(sc.Snapshot, pol, nil, nil)
		if err != nil {
			return err
		}
		res, err := engine.Allocate(context.Background(), sc.Requests)
		if err != nil {
			return err
		}
		printRun(res)
		return nil
	},
}

// simulateCmd runs a what-if comparison without touching any state.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a what-if simulation with constraint overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, pol, err := loadInputs()
		if err != nil {
			return err
		}
		ov, err := buildOverrides()
		if err != nil {
			return err
		}
		engine, err := alloc.NewEngine(sc.Snapshot, pol, nil, alloc.NopEmitter{})
		if err != nil {
			return err
		}
		res, err := engine.Simulate(context.Background(), sc.Requests, ov)
		if err != nil {
			return err
		}
		fmt.Printf("utilization: baseline=%.3f simulated=%.3f delta=%+.3f\n",
			res.BaselineUtilization, res.SimulatedUtilization, res.UtilizationDelta)
		fmt.Printf("fairness delta: %+.5f\n", res.FairnessDelta)
		fmt.Println("--- baseline ---")
		printRun(res.Baseline)
		fmt.Println("--- simulated ---")
		printRun(res.Simulated)
		return nil
	},
}

// seedCmd generates a deterministic synthetic scenario file.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate a synthetic scenario from a seed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := alloc.DefaultSynthesisConfig()
		cfg.Seed = seed
		cfg.HistoryDays = historyDays
		cfg.NumRequests = numRequests
		sc, err := alloc.Synthesize(cfg)
		if err != nil {
			return err
		}
		if err := SaveScenario(outPath, sc); err != nil {
			return err
		}
		logrus.Infof("wrote scenario with %d rooms, %d slots, %d requests to %s",
			len(sc.Snapshot.Rooms), len(sc.Snapshot.Slots), len(sc.Requests), outPath)
		return nil
	},
}

// buildOverrides translates simulate flags into a SimulationOverrides set.
func buildOverrides() (alloc.SimulationOverrides, error) {
	ov := alloc.SimulationOverrides{}
	for _, id := range blockRooms {
		ov.BlockedRooms = append(ov.BlockedRooms, alloc.RoomID(id))
	}
	for _, kv := range tierWeights {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			return ov, fmt.Errorf("malformed tier weight %q, want tier=weight", kv)
		}
		tier, err := alloc.ParseTier(name)
		if err != nil {
			return ov, err
		}
		w, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return ov, fmt.Errorf("malformed tier weight %q: %w", kv, err)
		}
		if ov.TierWeights == nil {
			ov.TierWeights = make(map[alloc.Tier]float64)
		}
		ov.TierWeights[tier] = w
	}
	if idleOverride >= 0 {
		threshold := idleOverride
		ov.MinIdleThreshold = &threshold
	}
	return ov, nil
}

func printRun(res *alloc.RunResult) {
	for _, d := range res.Decisions {
		review := ""
		if d.NeedsReview {
			review = " [review]"
		}
		fmt.Printf("%s -> %s %s (tier=%s method=%s objective=%.4f)%s\n",
			d.RequestID, d.Room, d.Slot, d.Tier, d.Method, d.Objective, review)
	}
	for _, r := range res.Rejections {
		fmt.Printf("%s rejected: %s (%s)\n", r.RequestID, r.Reason, r.Detail)
	}
	sum := res.Summarize()
	fmt.Printf("allocated %d/%d, utilization %.3f, objective %.4f, method %s\n",
		sum.Allocated, sum.TotalRequests, res.Utilization, res.Objective, res.Method)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "Path to YAML policy bundle (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&scenarioPath, "scenario", "", "Path to YAML scenario file")

	seedCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for synthetic generation")
	seedCmd.Flags().IntVar(&historyDays, "history-days", 21, "Days of synthetic occupancy history")
	seedCmd.Flags().IntVar(&numRequests, "requests", 18, "Number of synthetic booking requests")
	seedCmd.Flags().StringVar(&outPath, "out", "scenario.yaml", "Output path for the generated scenario")

	simulateCmd.Flags().StringSliceVar(&blockRooms, "block-room", nil, "Room ID to lock in the simulated run (repeatable)")
	simulateCmd.Flags().StringSliceVar(&tierWeights, "tier-weight", nil, "Tier weight override, tier=weight (repeatable)")
	simulateCmd.Flags().Float64Var(&idleOverride, "min-idle-threshold", -1, "Idle threshold override (negative leaves the policy value)")

	rootCmd.AddCommand(allocateCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(seedCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
