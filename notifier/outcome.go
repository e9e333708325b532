package notifier

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/slack-go/slack"
)

type Kind int

const (
	Success Kind = iota
	RemoteRejection
	FileUnavailable
	UnclassifiedFailure
)

func (k Kind) String() string {
	switch k {
	case Success:
		return `success`
	case RemoteRejection:
		return `remote rejection`
	case FileUnavailable:
		return `file unavailable`
	default:
		return `unclassified failure`
	}
}

// Outcome of one upload attempt
type Outcome struct {
	Kind    Kind
	Code    string // Slack error code, only set for RemoteRejection
	FileID  string // Slack file id, only set for Success
	Message string
	Err     error
}

// ExitCode for the process
func (o Outcome) ExitCode() int {
	if o.Kind == Success {
		return 0
	}
	return 1
}

// Report writes the single status line, successes to stdout and failures to stderr
func (o Outcome) Report(stdout, stderr io.Writer) {
	if o.Kind == Success {
		fmt.Fprintln(stdout, o.Message)
		return
	}
	fmt.Fprintln(stderr, o.Message)
}

// FileError marks a failure to read the local snapshot
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf(`cannot read snapshot %s, because: %v`, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func succeeded(fileID string) Outcome {
	return Outcome{
		Kind:    Success,
		FileID:  fileID,
		Message: `✅ File uploaded successfully`,
	}
}

// Classify maps an upload error to an Outcome. Remote rejections win over
// missing files, anything else is unclassified.
func Classify(err error, path string) Outcome {
	if err == nil {
		return succeeded(``)
	}

	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return rejected(slackErr.Err, err)
	}

	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		return rejected(`ratelimited`, err)
	}

	var fileErr *FileError
	if errors.As(err, &fileErr) || errors.Is(err, fs.ErrNotExist) {
		if fileErr != nil && fileErr.Path != `` {
			path = fileErr.Path
		}
		return Outcome{
			Kind:    FileUnavailable,
			Message: fmt.Sprintf(`❌ Snapshot file not found at: %s`, path),
			Err:     err,
		}
	}

	return Outcome{
		Kind:    UnclassifiedFailure,
		Message: fmt.Sprintf(`❌ General error: %v`, err),
		Err:     err,
	}
}

func rejected(code string, err error) Outcome {
	return Outcome{
		Kind:    RemoteRejection,
		Code:    code,
		Message: fmt.Sprintf(`❌ Slack API error: %s`, code),
		Err:     err,
	}
}
