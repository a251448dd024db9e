package pubsub

import "time"

// StorageType defines the storage backend for streams.
type StorageType int

const (
	// MemoryStorage stores data in memory (default).
	MemoryStorage StorageType = iota
	// FileStorage stores data on disk.
	FileStorage
)

// ParseStorageType maps "file" to FileStorage and everything else to MemoryStorage.
func ParseStorageType(s string) StorageType {
	if s == "file" {
		return FileStorage
	}
	return MemoryStorage
}

// PublisherOptions configures publisher behavior.
type PublisherOptions struct {
	// StreamName is the name of the stream to publish to.
	StreamName string

	// SubjectPrefix is prepended to all subjects.
	SubjectPrefix string

	// Subjects are the filters, relative to SubjectPrefix, captured by the
	// stream. Empty captures everything under the prefix.
	Subjects []string

	// RetryAttempts is the number of retry attempts for publishing.
	// 0 means no retry (default).
	RetryAttempts int

	// Storage is the storage type for the stream.
	Storage StorageType

	// OnPublish is called after each publish attempt (for metrics).
	OnPublish func(subject string, err error, latency time.Duration)
}
