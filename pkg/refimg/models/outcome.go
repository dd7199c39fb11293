package models

// UploadStatus is the result of one transfer.
type UploadStatus string

const (
	StatusSuccess UploadStatus = "success"
	StatusFailed  UploadStatus = "failed"
)

// UploadOutcome records what happened to one pair.
type UploadOutcome struct {
	Pair           Pair         `json:"-"`
	Row            int          `json:"row"`
	RemoteFilename string       `json:"name"`
	RemoteURL      string       `json:"url"`
	Status         UploadStatus `json:"status"`
	// Category is one of AuthFailure, ConnectFailure, TransferFailure, DirectoryFailure.
	Category string `json:"category,omitempty"`
	Error    string `json:"error,omitempty"`
	Attempts int    `json:"attempts"`
}

// Succeeded reports whether the outcome is a success.
func (o UploadOutcome) Succeeded() bool {
	return o.Status == StatusSuccess
}
