package constant

// SentinelNoneDetected is the placeholder for analysis fields the moderation
// model did not populate.
const SentinelNoneDetected = "None detected"

type HistoryStatus string

const (
	HistoryStatusUploaded    HistoryStatus = "uploaded"
	HistoryStatusTranscribed HistoryStatus = "transcribed"
	HistoryStatusAnalyzed    HistoryStatus = "analyzed"
)

type PipelineState string

const (
	PipelineStateIdle        PipelineState = "idle"
	PipelineStateHasAudio    PipelineState = "has_audio"
	PipelineStateTranscribed PipelineState = "transcribed"
	PipelineStateAnalyzing   PipelineState = "analyzing"
	PipelineStateAnalyzed    PipelineState = "analyzed"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{
	SeverityLow:    0,
	SeverityMedium: 1,
	SeverityHigh:   2,
}

func (s Severity) Rank() int {
	return severityRank[s]
}

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
