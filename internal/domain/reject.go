package domain

// Rejection stages.
const (
	StageParse     = "parse"
	StageStat      = "stat"
	StageDimension = "dimension"
	StageCommit    = "commit"
)

// Rejection records a file that was counted but not ingested.
type Rejection struct {
	Filename string `csv:"filename"`
	Stage    string `csv:"stage"`
	Reason   string `csv:"reason"`
}
