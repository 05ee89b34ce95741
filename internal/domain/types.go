// Package domain holds the entities the pipeline moves between
// components: file references, events, routing plans, and the
// notification published on completion. None of these types talk to a
// protocol, a queue, or a sink directly — they are the data, not the
// behavior.
package domain

import "time"

// Protocol identifies the scheme a FileReference was discovered on.
type Protocol string

const (
	ProtocolLocal Protocol = "local"
	ProtocolFTP   Protocol = "ftp"
	ProtocolSFTP  Protocol = "sftp"
)

// FileReference locates a file on one of the supported protocols.
type FileReference struct {
	Scheme     Protocol `json:"scheme"`
	Host       string   `json:"host,omitempty"`
	Port       uint16   `json:"port,omitempty"`
	Path       string   `json:"path"`
	SourceName string   `json:"sourceName,omitempty"`
}

// FileAttributes is an immutable snapshot of a file's size/mtime/hash
// at the moment it was observed.
type FileAttributes struct {
	Size        int64     `json:"size"`
	LastWriteUtc time.Time `json:"lastWriteUtc"`
	Hash        string    `json:"hash,omitempty"`
}

// FileObservationSnapshot is poller-local bookkeeping for one identity
// key: when it was first and last seen, and at what size.
type FileObservationSnapshot struct {
	Size             int64
	LastWriteUtc     time.Time
	FirstObservedUtc time.Time
	LastObservedUtc  time.Time
}

// EventMetadata is FileEvent's metadata sub-object.
type EventMetadata struct {
	SourcePath string `json:"sourcePath"`
	Size       int64  `json:"size"`
	LastModUtc time.Time `json:"lastModUtc"`
	HashAlg    string `json:"hashAlg,omitempty"`
	Checksum   string `json:"checksum,omitempty"`
}

// FileEvent is the unit of work that flows through the queue.
type FileEvent struct {
	ID                  string        `json:"id"`
	Metadata            EventMetadata `json:"metadata"`
	DiscoveredAtUtc     time.Time     `json:"discoveredAtUtc"`
	Protocol            Protocol      `json:"protocol"`
	SourceName          string        `json:"sourceName,omitempty"`
	Host                string        `json:"host,omitempty"`
	Port                uint16        `json:"port,omitempty"`
	DestinationPathHint string        `json:"destinationPathHint,omitempty"`
	DeleteAfterTransfer bool          `json:"deleteAfterTransfer"`
}

// WriteOptions configures how a sink should write a single destination.
type WriteOptions struct {
	Overwrite     bool   `json:"overwrite"`
	ComputeHash   bool   `json:"computeHash"`
	RenamePattern string `json:"renamePattern,omitempty"`
}

// FailurePolicy governs what happens after one destination in a plan
// fails to write.
type FailurePolicy string

const (
	FailurePolicyAllOrNothing FailurePolicy = "AllOrNothing"
	FailurePolicyBestEffort   FailurePolicy = "BestEffort"
)

// DestinationPlan is a concrete (destination, targetPath, writeOptions)
// triple computed by the Router for one event.
type DestinationPlan struct {
	DestinationName string       `json:"destinationName"`
	TargetPath      string       `json:"targetPath"`
	WriteOptions    WriteOptions `json:"writeOptions"`
	IsTopic         bool         `json:"isTopic,omitempty"`
}

// FilePublishRequest is handed to the FileContentPublisher sink.
type FilePublishRequest struct {
	SourcePath      string            `json:"sourcePath"`
	FileName        string            `json:"fileName"`
	ContentBytes    []byte            `json:"contentBytes,omitempty"`
	ContentType     string            `json:"contentType,omitempty"`
	DestinationName string            `json:"destinationName"`
	IsTopic         bool              `json:"isTopic"`
	AppProps        map[string]string `json:"appProps,omitempty"`
}

// NotificationStatus is the terminal status of one FileEvent.
type NotificationStatus string

const (
	NotificationSuccess NotificationStatus = "Success"
	NotificationFailure NotificationStatus = "Failure"
)

// DestinationResult records the outcome of one attempted sink write.
type DestinationResult struct {
	Type         string        `json:"type"`
	Identifier   string        `json:"identifier"`
	Success      bool          `json:"success"`
	BytesWritten int64         `json:"bytesWritten"`
	Latency      time.Duration `json:"latency,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// FileProcessedNotification is published once per terminal event.
type FileProcessedNotification struct {
	SchemaVersion  int                 `json:"schemaVersion"`
	Protocol       Protocol            `json:"protocol"`
	FullPath       string              `json:"fullPath"`
	Size           int64               `json:"size"`
	LastModUtc     time.Time           `json:"lastModUtc"`
	Status         NotificationStatus  `json:"status"`
	Duration       time.Duration       `json:"duration"`
	IdempotencyKey string              `json:"idempotencyKey"`
	CorrelationID  string              `json:"correlationId"`
	CompletedUtc   time.Time           `json:"completedUtc"`
	Destinations   []DestinationResult `json:"destinations"`
}

// NotificationSchemaVersion is the current wire schema version for
// FileProcessedNotification.
const NotificationSchemaVersion = 1

// NewNotification builds a v1 FileProcessedNotification.
func NewNotification(event *FileEvent, status NotificationStatus, duration time.Duration, completedUtc time.Time, destinations []DestinationResult) *FileProcessedNotification {
	if destinations == nil {
		destinations = []DestinationResult{}
	}
	return &FileProcessedNotification{
		SchemaVersion:  NotificationSchemaVersion,
		Protocol:       event.Protocol,
		FullPath:       event.Metadata.SourcePath,
		Size:           event.Metadata.Size,
		LastModUtc:     event.Metadata.LastModUtc,
		Status:         status,
		Duration:       duration,
		IdempotencyKey: "file:" + event.ID,
		CorrelationID:  event.ID,
		CompletedUtc:   completedUtc,
		Destinations:   destinations,
	}
}

// DeadLetterEnvelope wraps the original payload with failure metadata
// on the way into the dead-letter stream.
type DeadLetterEnvelope struct {
	Event      FileEvent `json:"event"`
	Reason     string    `json:"reason"`
	Code       string    `json:"code"`
	FailedAtUtc time.Time `json:"failedAtUtc"`
	Attempts   int       `json:"attempts"`
}
