package domain

type (
	BoardName   = string
	Description = string

	PostId   = uint64
	ThreadId = PostId // a thread is identified by its root post

	Owner      = string
	PostText   = string
	ThreadName = string
	Attachment = []byte
	QueueName  = string
)

// Queue names, used in logs, metrics and thread locations.
const (
	QueueActive  QueueName = "active"
	QueueArchive QueueName = "archive"
)
