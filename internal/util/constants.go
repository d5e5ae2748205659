package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 分页相关常量
const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
)

const (
	MimeCSV  = "text/csv"
	MimeJSON = "application/json"
)
