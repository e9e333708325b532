package notifier

import (
	"errors"
	"fmt"

	"doorbell-uploader/config"
)

// UploadRequest holds everything needed for a single upload
type UploadRequest struct {
	AuthToken     string
	DestinationID string
	FilePath      string
	Comment       string
	Title         string
}

// NewUploadRequest from the process configuration
func NewUploadRequest(cfg *config.Config) UploadRequest {
	return UploadRequest{
		AuthToken:     cfg.Slack.Token,
		DestinationID: cfg.Slack.ChannelID,
		FilePath:      cfg.Snapshot.Path,
		Comment:       cfg.Snapshot.Comment,
		Title:         cfg.Snapshot.Title,
	}
}

// Validate that no field is empty
func (r UploadRequest) Validate() error {
	var errs []error
	for name, value := range map[string]string{
		`auth token`:     r.AuthToken,
		`destination id`: r.DestinationID,
		`file path`:      r.FilePath,
		`comment`:        r.Comment,
		`title`:          r.Title,
	} {
		if value == `` {
			errs = append(errs, fmt.Errorf(`%s must not be empty`, name))
		}
	}
	return errors.Join(errs...)
}
