package pipeline

// Stage represents pipeline phases.
type Stage string

const (
	StageReceived          Stage = "RECEIVED_TRANSCRIPT"
	StageSummarized        Stage = "SUMMARIZED"
	StageExtracted         Stage = "EXTRACTED"
	StageProjectResolved   Stage = "PROJECT_RESOLVED"
	StageAssigneeResolving Stage = "ASSIGNEE_RESOLVING"
	StageIssueCreating     Stage = "ISSUE_CREATING"
	StageCompleted         Stage = "COMPLETED"
	StageFailed            Stage = "FAILED"
)
