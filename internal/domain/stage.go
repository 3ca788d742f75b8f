package domain

// Stage is a pipeline state.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageUploading  Stage = "uploading"
	StageAnalyzing  Stage = "analyzing"
	StagePredicting Stage = "predicting"
	StageFinalizing Stage = "finalizing"
	StageSucceeded  Stage = "succeeded"
	StageFailed     Stage = "failed"
)

// Terminal reports whether no further transitions happen without a reset.
func (s Stage) Terminal() bool {
	return s == StageSucceeded || s == StageFailed
}

// Label is the human readable description shown next to the progress bar.
func (s Stage) Label() string {
	switch s {
	case StageUploading:
		return "Uploading photos"
	case StageAnalyzing:
		return "Analyzing facial features"
	case StagePredicting:
		return "Generating ancestor model with AI"
	case StageFinalizing:
		return "Finalizing prediction"
	case StageSucceeded:
		return "Ancestor prediction complete"
	case StageFailed:
		return "Prediction failed"
	default:
		return "Waiting for photos"
	}
}
