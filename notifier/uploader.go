package notifier

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"
	"github.com/romana/rlog"
	"github.com/slack-go/slack"
)

const DefaultTimeout = 30 * time.Second

// Client is the part of the Slack API the uploader needs. *slack.Client implements it.
type Client interface {
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

// ClientFactory binds a client to a token
type ClientFactory func(token string) Client

// Mirror receives a copy of every accepted snapshot
type Mirror interface {
	Name() string
	Upload(localPath, remoteName string) error
}

type Uploader struct {
	newClient ClientFactory
	timeout   time.Duration
	mirrors   []Mirror
	now       func() time.Time
}

// New uploader. A timeout <= 0 uses DefaultTimeout.
func New(newClient ClientFactory, timeout time.Duration, mirrors ...Mirror) *Uploader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Uploader{
		newClient: newClient,
		timeout:   timeout,
		mirrors:   mirrors,
		now:       time.Now,
	}
}

// Upload performs exactly one upload attempt and never panics
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) Outcome {

	if err := req.Validate(); err != nil {
		return Classify(fmt.Errorf(`invalid upload request, because: %w`, err), req.FilePath)
	}

	data, err := os.ReadFile(req.FilePath)
	if err != nil {
		return Classify(&FileError{Path: req.FilePath, Err: err}, req.FilePath)
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	rlog.Infof(`Uploading %s (%d bytes) to channel %s ...`, req.FilePath, len(data), req.DestinationID)
	fileID, err := u.send(ctx, req, data)
	if err != nil {
		rlog.Debugf(`Upload of %s failed, because: %v`, req.FilePath, err)
		return Classify(err, req.FilePath)
	}
	rlog.Infof(`File %s was successfully uploaded to %s as %s`, filepath.Base(req.FilePath), req.DestinationID, fileID)

	return succeeded(fileID)
}

// send converts a panic in the client into an error
func (u *Uploader) send(ctx context.Context, req UploadRequest, data []byte) (fileID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf(`upload aborted, because: %v`, r)
		}
	}()

	client := u.newClient(req.AuthToken)
	summary, err := client.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Reader:         bytes.NewReader(data),
		FileSize:       len(data),
		Filename:       uploadName(req.FilePath, data),
		Title:          req.Title,
		InitialComment: req.Comment,
		Channel:        req.DestinationID,
	})
	if err != nil {
		return ``, err
	}
	if summary != nil {
		fileID = summary.ID
	}
	return fileID, nil
}

// Archive copies an accepted snapshot to every mirror. Failures are only logged
// and the outcome is never changed. Call it after the outcome was reported.
func (u *Uploader) Archive(req UploadRequest, outcome Outcome) {
	if len(u.mirrors) == 0 || outcome.Kind != Success {
		return
	}

	path := req.FilePath
	remoteName := archiveName(path, u.now())
	for _, m := range u.mirrors {
		if err := m.Upload(path, remoteName); err != nil {
			rlog.Warnf(`Could not archive %s to %s, because %v`, filepath.Base(path), m.Name(), err)
		}
	}
}

// uploadName is the file's base name. Files without an extension get one
// sniffed from their content so Slack can preview them.
func uploadName(path string, data []byte) string {
	name := filepath.Base(path)
	if filepath.Ext(name) != `` {
		return name
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return name
	}
	return name + `.` + kind.Extension
}

// archiveName adds a timestamp so archived snapshots do not overwrite each other
func archiveName(path string, t time.Time) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return fmt.Sprintf(`%s_%s%s`, base[:len(base)-len(ext)], t.Format(`20060102-150405`), ext)
}
