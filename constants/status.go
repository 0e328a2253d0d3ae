package constants

// ProcessingStatus is the canonical status for rows in uploads.
type ProcessingStatus string

// Stable values (store these exact strings in DB). Every upload starts as
// "uploaded" and moves to exactly one terminal state.
const (
	StatusUploaded    ProcessingStatus = "uploaded"
	StatusParsed      ProcessingStatus = "parsed"       // deterministic tabular success
	StatusAIExtracted ProcessingStatus = "ai_extracted" // text extraction + AI success
	StatusExpanded    ProcessingStatus = "expanded"     // archive, after all members processed
	StatusRejected    ProcessingStatus = "rejected"     // extension not allow-listed
	StatusFailed      ProcessingStatus = "failed"       // any processing error; message captured
)
