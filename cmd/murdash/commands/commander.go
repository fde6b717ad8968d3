package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyluth/murdash/internal/catalog"
	"github.com/dyluth/murdash/internal/printer"
	"github.com/dyluth/murdash/pkg/commander"
)

var (
	commanderJSON   bool
	commanderShadow bool
	commanderVars   []string
)

var commanderCmd = &cobra.Command{
	Use:   "commander",
	Short: "Talk to the mur-commander daemon",
	Long: `Inspect and run executable workflows on a mur-commander daemon
(endpoints.commander in murdash.yml, default http://localhost:3939).`,
}

var commanderStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show commander health",
	Args:  cobra.NoArgs,
	RunE:  runCommanderStatus,
}

var commanderWorkflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List commander workflows",
	Args:  cobra.NoArgs,
	RunE:  runCommanderWorkflows,
}

var commanderRunCmd = &cobra.Command{
	Use:   "run WORKFLOW_ID",
	Short: "Run a commander workflow",
	Long: `Run a workflow on the commander daemon and print the step results.

Examples:
  # Dry run without side effects
  murdash commander run nightly-refactor --shadow

  # Override variables
  murdash commander run deploy --var env=staging --var region=eu`,
	Args: cobra.ExactArgs(1),
	RunE: runCommanderRun,
}

var commanderAuditCmd = &cobra.Command{
	Use:   "audit QUERY",
	Short: "Search the commander audit log",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommanderAudit,
}

func init() {
	commanderCmd.PersistentFlags().BoolVar(&commanderJSON, "json", false, "Print raw JSON")
	commanderRunCmd.Flags().BoolVar(&commanderShadow, "shadow", false, "Run without side effects")
	commanderRunCmd.Flags().StringArrayVar(&commanderVars, "var", nil, "Variable override KEY=VALUE (repeatable)")

	commanderCmd.AddCommand(commanderStatusCmd, commanderWorkflowsCmd, commanderRunCmd, commanderAuditCmd)
	rootCmd.AddCommand(commanderCmd)
}

func newCommanderClient() *commander.Client {
	return commander.NewClient(
		commander.WithBaseURL(cfg.Endpoints.Commander),
		commander.WithHealthTimeout(cfg.Health.Timeout),
		commander.WithLogger(logger.Named("commander")),
	)
}

func runCommanderStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	client := newCommanderClient()
	health, err := client.Health(ctx)
	if err != nil {
		return reportCommanderError(client, err)
	}

	if commanderJSON {
		return catalog.FormatSingleJSON(printer.Out, health)
	}
	printer.Success("Commander %s at %s (version %s)\n", health.Status, client.BaseURL(), health.Version)
	return nil
}

func runCommanderWorkflows(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	client := newCommanderClient()
	workflows, err := client.Workflows(ctx)
	if err != nil {
		return reportCommanderError(client, err)
	}

	if commanderJSON {
		return catalog.FormatJSONL(printer.Out, workflows)
	}
	if len(workflows) == 0 {
		printer.Println("No commander workflows found")
		return nil
	}
	printer.Printf("%-24s %-28s %-5s %s\n", "ID", "NAME", "STEPS", "SCHEDULE")
	for _, wf := range workflows {
		schedule := wf.Schedule
		if schedule == "" {
			schedule = "-"
		}
		printer.Printf("%-24s %-28s %-5d %s\n", wf.ID, wf.Name, len(wf.Steps), schedule)
	}
	return nil
}

func runCommanderRun(cmd *cobra.Command, args []string) error {
	vars, err := parseVars(commanderVars)
	if err != nil {
		return printer.Error("invalid --var", err.Error(), []string{"Use KEY=VALUE, e.g. --var env=staging"})
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := newCommanderClient()
	result, err := client.RunWorkflow(ctx, args[0], commander.RunOptions{Shadow: commanderShadow, Vars: vars})
	if err != nil {
		return reportCommanderError(client, err)
	}

	if commanderJSON {
		return catalog.FormatSingleJSON(printer.Out, result)
	}

	label := "Run"
	if result.Shadow {
		label = "Shadow run"
	}
	for _, step := range result.StepResults {
		mark := "✓"
		if !step.Success {
			mark = "✗"
		}
		printer.Printf("  %s %-28s %dms\n", mark, step.StepName, step.DurationMs)
	}
	if !result.Success {
		return printer.ErrorWithContext(
			fmt.Sprintf("%s of %s failed", label, args[0]),
			result.Error,
			map[string]string{
				"execution": result.ExecutionID,
				"steps":     fmt.Sprintf("%d/%d", result.StepsCompleted, result.StepsTotal),
			},
			nil,
		)
	}
	printer.Success("%s of %s completed: %d/%d steps in %dms\n", label, args[0], result.StepsCompleted, result.StepsTotal, result.DurationMs)
	return nil
}

func runCommanderAudit(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	client := newCommanderClient()
	entries, err := client.SearchAudit(ctx, args[0])
	if err != nil {
		return reportCommanderError(client, err)
	}

	if commanderJSON {
		return catalog.FormatJSONL(printer.Out, entries)
	}
	if len(entries) == 0 {
		printer.Println("No audit entries found")
		return nil
	}
	for _, e := range entries {
		printer.Printf("%s  %-14s %-13s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.ActionType, e.Decision, e.ActionDetail)
	}
	return nil
}

// parseVars converts KEY=VALUE flags into a map. Later keys win.
func parseVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", pair)
		}
		vars[k] = v
	}
	return vars, nil
}

func reportCommanderError(client *commander.Client, err error) error {
	ctx := map[string]string{"url": client.BaseURL()}

	var status *commander.StatusError
	switch {
	case errors.Is(err, commander.ErrUnavailable):
		return printer.ErrorWithContext("commander unreachable", err.Error(), ctx,
			[]string{"Start it:\n  mur-commander serve", "Point murdash at it with endpoints.commander in murdash.yml"})
	case errors.As(err, &status):
		ctx["status"] = fmt.Sprint(status.Code)
		return printer.ErrorWithContext("commander request failed", err.Error(), ctx, nil)
	default:
		return printer.ErrorWithContext("commander request failed", err.Error(), ctx, nil)
	}
}
