package model

// Upload statuses.
const (
	UploadStatusUploaded = "uploaded"
	UploadStatusFailed   = "failed"
	UploadStatusRejected = "rejected"
)

// An Upload is a journal entry for one relayed file.
type Upload struct {
	Base `json:",inline" storm:"inline"`

	SessionID string `json:"session_id" storm:"index"`
	Filename  string `json:"filename"   storm:"index"`
	Kind      string `json:"kind"` // rda or dat

	Project    string `json:"project"`
	Subject    string `json:"subject"`
	Experiment string `json:"experiment"`
	ScanID     string `json:"scan_id"`
	Resource   string `json:"resource"`

	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`

	Status     string `json:"status" storm:"index"`
	Message    string `json:"message"`
	SpoolBatch string `json:"spool_batch" storm:"index"`
}
