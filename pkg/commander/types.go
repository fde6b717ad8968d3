package commander

import "time"

// StepType classifies what a workflow step does.
type StepType string

const (
	StepExecute  StepType = "Execute"
	StepAnalyze  StepType = "Analyze"
	StepCode     StepType = "Code"
	StepRefactor StepType = "Refactor"
	StepFix      StepType = "Fix"
	StepReview   StepType = "Review"
	StepTest     StepType = "Test"
	StepDeploy   StepType = "Deploy"
)

// FailureAction is what the commander does when a step fails.
type FailureAction string

const (
	FailAbort   FailureAction = "Abort"
	FailSkip    FailureAction = "Skip"
	FailRetry   FailureAction = "Retry"
	FailAutoFix FailureAction = "AutoFix"
)

// Decision is the policy verdict recorded for an audited action.
type Decision string

const (
	DecisionAllowed       Decision = "Allowed"
	DecisionNeedsApproval Decision = "NeedsApproval"
	DecisionBlocked       Decision = "Blocked"
)

// Step is one executable step of a commander workflow.
type Step struct {
	Name              string        `json:"name"`
	StepType          StepType      `json:"step_type"`
	Action            string        `json:"action"`
	OnFailure         FailureAction `json:"on_failure"`
	Breakpoint        bool          `json:"breakpoint"`
	BreakpointMessage string        `json:"breakpoint_message,omitempty"`
}

// Workflow is an executable workflow managed by the commander daemon.
type Workflow struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Steps       []Step            `json:"steps"`
	Variables   map[string]string `json:"variables"`
	Schedule    string            `json:"schedule,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// WorkflowDraft is the caller-supplied part of a new commander workflow.
type WorkflowDraft struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Steps       []Step            `json:"steps"`
	Variables   map[string]string `json:"variables"`
	Schedule    string            `json:"schedule,omitempty"`
}

// WorkflowUpdate is a partial commander workflow. Nil fields are left unchanged.
type WorkflowUpdate struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Steps       *[]Step            `json:"steps,omitempty"`
	Variables   *map[string]string `json:"variables,omitempty"`
	Schedule    *string            `json:"schedule,omitempty"`
}

// AuditEntry is one record of the commander's hash-chained audit log.
type AuditEntry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"session_id"`
	WorkflowID    string    `json:"workflow_id,omitempty"`
	ActionType    string    `json:"action_type"`
	ActionDetail  string    `json:"action_detail"`
	ModelUsed     string    `json:"model_used,omitempty"`
	Cost          float64   `json:"cost,omitempty"`
	InputHash     string    `json:"input_hash"`
	OutputSummary string    `json:"output_summary"`
	Decision      Decision  `json:"decision"`
	ApprovedBy    string    `json:"approved_by,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	PrevHash      string    `json:"prev_hash"`
	EntryHash     string    `json:"entry_hash"`
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	StepName   string  `json:"step_name"`
	Success    bool    `json:"success"`
	Output     string  `json:"output"`
	DurationMs int64   `json:"duration_ms"`
	Cost       float64 `json:"cost"`
	Error      string  `json:"error,omitempty"`
}

// ExecutionResult is the outcome of a workflow run.
type ExecutionResult struct {
	ExecutionID    string       `json:"execution_id"`
	WorkflowID     string       `json:"workflow_id"`
	StepsCompleted int          `json:"steps_completed"`
	StepsTotal     int          `json:"steps_total"`
	Success        bool         `json:"success"`
	DurationMs     int64        `json:"duration_ms"`
	TotalCost      float64      `json:"total_cost"`
	StepResults    []StepResult `json:"step_results"`
	Shadow         bool         `json:"shadow"`
	Error          string       `json:"error,omitempty"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
}

// Health is the commander's health report.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// RunOptions controls a workflow run.
type RunOptions struct {
	// Shadow runs the workflow without side effects
	Shadow bool

	// Vars override workflow variables
	Vars map[string]string
}
