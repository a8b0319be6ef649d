package webhdfs

import "time"

// File types reported in FileStatus.Type.
const (
	TypeFile      = "FILE"
	TypeDirectory = "DIRECTORY"
	TypeSymlink   = "SYMLINK"
)

// FileStatus is one directory listing entry.
// Fields are normalized from the gateway's FileStatus JSON.
type FileStatus struct {
	Name        string // pathSuffix: the entry name relative to the listed directory
	Type        string // TypeFile, TypeDirectory or TypeSymlink
	Size        int64
	Owner       string
	Group       string
	Permission  string // octal, e.g. "755"
	Replication int
	BlockSize   int64
	ChildCount  int
	FileID      int64
	ModifiedAt  time.Time
	AccessedAt  time.Time
}

// IsDir reports whether the entry is a directory.
func (f *FileStatus) IsDir() bool {
	return f.Type == TypeDirectory
}

// fileStatusResponse mirrors the gateway's FileStatus JSON exactly.
// Unexported: callers use FileStatus via toFileStatus().
type fileStatusResponse struct {
	PathSuffix       string `json:"pathSuffix"`
	Type             string `json:"type"`
	Length           int64  `json:"length"`
	Owner            string `json:"owner"`
	Group            string `json:"group"`
	Permission       string `json:"permission"`
	Replication      int    `json:"replication"`
	BlockSize        int64  `json:"blockSize"`
	ChildrenNum      int    `json:"childrenNum"`
	FileID           int64  `json:"fileId"`
	ModificationTime int64  `json:"modificationTime"` // epoch milliseconds
	AccessTime       int64  `json:"accessTime"`       // epoch milliseconds
}

type listStatusResponse struct {
	FileStatuses *struct {
		FileStatus []fileStatusResponse `json:"FileStatus"` //nolint:tagliatelle // gateway key
	} `json:"FileStatuses"` //nolint:tagliatelle // gateway key
}

type booleanResponse struct {
	Boolean *bool `json:"boolean"`
}

func (f *fileStatusResponse) toFileStatus() FileStatus {
	return FileStatus{
		Name:        f.PathSuffix,
		Type:        f.Type,
		Size:        f.Length,
		Owner:       f.Owner,
		Group:       f.Group,
		Permission:  f.Permission,
		Replication: f.Replication,
		BlockSize:   f.BlockSize,
		ChildCount:  f.ChildrenNum,
		FileID:      f.FileID,
		ModifiedAt:  epochMillis(f.ModificationTime),
		AccessedAt:  epochMillis(f.AccessTime),
	}
}

// epochMillis converts epoch milliseconds to UTC time. Zero stays the zero Time.
func epochMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms).UTC()
}
