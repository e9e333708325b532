package connectors

import (
	"time"

	"doorbell-uploader/config"
	"doorbell-uploader/notifier"

	"github.com/romana/rlog"
)

const defaultArchiveTimeout = 30 * time.Second

// Archiver copies accepted snapshots to a remote archive
type Archiver interface {
	Init() error
	Name() string
	Upload(localPath, remoteName string) error
}

// Archivers returns every configured archive that could be initialised.
// A broken archive configuration never blocks the Slack upload.
func Archivers(cfg *config.Config) []notifier.Mirror {

	candidates := []Archiver{}
	if cfg.Sftp.Enabled() {
		candidates = append(candidates, NewSftp(cfg.Sftp, cfg.Slack.Timeout))
	}
	if cfg.Ftps.Enabled() {
		candidates = append(candidates, NewFtps(cfg.Ftps, cfg.Slack.Timeout))
	}

	mirrors := []notifier.Mirror{}
	for _, a := range candidates {
		if err := a.Init(); err != nil {
			rlog.Warnf(`%s archive disabled, because %v`, a.Name(), err)
			continue
		}
		mirrors = append(mirrors, a)
	}

	return mirrors
}
