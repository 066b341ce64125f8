package constants

// StageID identifies one independently resumable phase of the pipeline.
type StageID string

// Stable values (store these exact strings in the ledger).
const (
	StageDownload StageID = "download"
	StageRename   StageID = "rename"
	StageExtract  StageID = "extract"
)

// Stages lists the phases in pipeline order.
var Stages = []StageID{StageDownload, StageRename, StageExtract}

// ParseStage returns the StageID for its stored string form.
func ParseStage(s string) (StageID, bool) {
	for _, st := range Stages {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}
