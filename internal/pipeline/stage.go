package pipeline

// Stage is the orchestrator's state machine position. Stages run strictly in
// sequence; Failed is reachable from any of them on an unrecoverable error.
type Stage int

const (
	StageConfiguring Stage = iota
	StageLoading
	StageTransforming
	StagePatchingReferences
	StagePersisting
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageConfiguring:
		return "configuring"
	case StageLoading:
		return "loading"
	case StageTransforming:
		return "transforming"
	case StagePatchingReferences:
		return "patching-references"
	case StagePersisting:
		return "persisting"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}
