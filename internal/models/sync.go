package models

// SyncPhase identifies the stage a sync run is in, for progress reporting.
type SyncPhase string

const (
	SyncPhaseParsing    SyncPhase = "parsing"
	SyncPhaseCategories SyncPhase = "categories"
	SyncPhaseItems      SyncPhase = "items"
	SyncPhaseVariants   SyncPhase = "variants"
	SyncPhaseAddons     SyncPhase = "addons"
	SyncPhaseComplete   SyncPhase = "complete"
	SyncPhaseError      SyncPhase = "error"
)

// ProgressFunc receives live status while a sync run executes. Progress is a
// percentage, or -1 when no meaningful number exists for the message.
type ProgressFunc func(message string, phase SyncPhase, progress int)

// SyncRowError represents an error scoped to a single spreadsheet row. The
// run continues past these; they accumulate in the result.
type SyncRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// PhaseCounters aggregates what one reconciliation phase did.
type PhaseCounters struct {
	Added       int `json:"added"`
	Updated     int `json:"updated"`
	Deactivated int `json:"deactivated"`
	Total       int `json:"total"`
}

// SyncResult is the full report of one reconciliation pass. It is returned
// even when the run fails partway; counters reflect what completed.
type SyncResult struct {
	Success         bool           `json:"success"`
	Categories      PhaseCounters  `json:"categories"`
	Items           PhaseCounters  `json:"items"`
	Variants        PhaseCounters  `json:"variants"`
	Addons          PhaseCounters  `json:"addons"`
	ImagesExtracted int            `json:"imagesExtracted"`
	Log             []string       `json:"log"`
	Errors          []SyncRowError `json:"errors,omitempty"`
}

// AddLog appends a line to the ordered run log.
func (r *SyncResult) AddLog(line string) {
	r.Log = append(r.Log, line)
}

// AddRowError records a row-scoped error without aborting the run.
func (r *SyncResult) AddRowError(row int, message, details string) {
	r.Errors = append(r.Errors, SyncRowError{Row: row, Message: message, Details: details})
}

type SyncResponse struct {
	Success bool        `json:"success"`
	Data    *SyncResult `json:"data"`
}
