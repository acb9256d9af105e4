package view

type MinioStorageCreds struct {
	BucketName string
	IsActive   bool
	Endpoint   string
	Crt        string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
}

// ArchiveObjectPrefix is prepended to the job id in object keys of uploaded archives.
const ArchiveObjectPrefix = "exports/"
