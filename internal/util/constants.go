package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 文件上传相关常量
const (
	MimeVideo       = "video/"
	MimeImage       = "image/"
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
)

// 课时媒体允许的类型
var LessonMediaTypes = []string{MimeVideo, MimeImage, MimePDF}

// 课程统计缓存键前缀
const CourseStatsKeyPrefix = "lms:course:stats:"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
