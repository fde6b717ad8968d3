package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/murdash/internal/catalog"
	"github.com/dyluth/murdash/internal/printer"
	"github.com/dyluth/murdash/internal/resolver"
	"github.com/dyluth/murdash/pkg/model"
)

var (
	workflowsOutputFormat string
	workflowJSON          bool
	workflowDelete        bool

	addWorkflowName        string
	addWorkflowDescription string
	addWorkflowSteps       []string
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List workflows",
	Long: `List workflows from the selected backend, ordered by name.

Output Formats:
  default - Human-readable table
  jsonl   - Line-delimited JSON, one workflow per line`,
	Args: cobra.NoArgs,
	RunE: runWorkflows,
}

var workflowCmd = &cobra.Command{
	Use:   "workflow WORKFLOW_ID",
	Short: "Show or delete one workflow",
	Long: `Show one workflow with its numbered steps. WORKFLOW_ID may be a unique prefix.

Examples:
  murdash workflow code-review
  murdash workflow code-review --json`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

var workflowAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a workflow",
	Long: `Create a workflow on the selected backend. Steps keep the order given.

Example:
  murdash workflows add --name Release --step "Tag the commit" --step "Publish"`,
	Args: cobra.NoArgs,
	RunE: runWorkflowAdd,
}

func init() {
	workflowsCmd.Flags().StringVarP(&workflowsOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	rootCmd.AddCommand(workflowsCmd)

	workflowCmd.Flags().BoolVar(&workflowJSON, "json", false, "Print the complete workflow as JSON")
	workflowCmd.Flags().BoolVar(&workflowDelete, "delete", false, "Delete the workflow")
	rootCmd.AddCommand(workflowCmd)

	workflowAddCmd.Flags().StringVar(&addWorkflowName, "name", "", "Workflow name (required)")
	workflowAddCmd.Flags().StringVarP(&addWorkflowDescription, "description", "d", "", "Workflow description")
	workflowAddCmd.Flags().StringArrayVar(&addWorkflowSteps, "step", nil, "Step text (repeatable, order preserved)")
	workflowsCmd.AddCommand(workflowAddCmd)
}

func runWorkflows(cmd *cobra.Command, args []string) error {
	format, err := catalog.ParseOutputFormat(workflowsOutputFormat)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, jsonl"})
	}

	ctx, cancel := signalContext()
	defer cancel()

	session, err := startSession(ctx, false)
	if err != nil {
		return err
	}
	defer session.Close()

	if format == catalog.OutputFormatDefault {
		printer.Printf("%s ", printer.ModeBadge(session.Client().DataSource()))
	}
	return catalog.ListWorkflows(printer.Out, session.Store().Workflows(), format, time.Now())
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	session, err := startSession(ctx, false)
	if err != nil {
		return err
	}
	defer session.Close()

	st := session.Store()
	wf, err := resolver.ResolveWorkflow(st.Workflows(), args[0])
	if err != nil {
		return reportResolveError("workflow", args[0], err)
	}

	if workflowDelete {
		if err := st.DeleteWorkflow(ctx, wf.ID); err != nil {
			return reportMutationError("delete", wf.ID, err)
		}
		printer.Success("Deleted workflow %s\n", wf.ID)
		return nil
	}

	if workflowJSON {
		return catalog.FormatSingleJSON(printer.Out, wf)
	}
	catalog.FormatWorkflowDetail(printer.Out, wf, time.Now())
	return nil
}

func runWorkflowAdd(cmd *cobra.Command, args []string) error {
	draft := model.WorkflowDraft{
		Name:        addWorkflowName,
		Description: addWorkflowDescription,
		Steps:       nonNil(addWorkflowSteps),
	}
	if err := draft.Validate(); err != nil {
		return printer.Error("invalid workflow", err.Error(), []string{"Pass --name"})
	}

	ctx, cancel := signalContext()
	defer cancel()

	session, err := startSession(ctx, false)
	if err != nil {
		return err
	}
	defer session.Close()

	wf, err := session.Store().CreateWorkflow(ctx, draft)
	if err != nil {
		return reportMutationError("create", "", err)
	}

	printer.Success("Created workflow %s (%d steps) %s\n", wf.ID, len(wf.Steps), printer.ModeBadge(session.Client().DataSource()))
	return nil
}
