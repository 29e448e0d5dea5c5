package domain

import "time"

const PDFMimeType = "application/pdf"

type Document struct {
	ID         string
	OwnerID    string
	Filename   string
	URL        string
	StorageKey string
	FileSize   int64
	MimeType   string
	PageCount  int
	Checksum   string
	UploadedAt time.Time
}

// DocumentLocation is the replacement set written when a signed binary
// supersedes the stored one.
type DocumentLocation struct {
	Filename   string
	URL        string
	StorageKey string
	FileSize   int64
	Checksum   string
	UploadedAt time.Time
}
