package models

import "time"

// FileInfo describes one stored object as returned by the list and getFile
// operations. The JSON field names are part of the public API.
type FileInfo struct {
	Name         string            `json:"name"`
	SizeInBytes  int64             `json:"sizeInBytes"`
	ContentType  string            `json:"contentType"`
	LastModified time.Time         `json:"lastModified"`
	BlobURL      string            `json:"blobUrl"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	MD5Hash      string            `json:"md5Hash,omitempty"`
}
