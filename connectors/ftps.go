package connectors

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"doorbell-uploader/config"

	"github.com/jlaffaye/ftp"
	"github.com/romana/rlog"
)

type Ftps struct {
	cfg       config.Ftps
	timeout   time.Duration
	tlsConfig *tls.Config
}

func NewFtps(cfg config.Ftps, timeout time.Duration) *Ftps {
	if timeout <= 0 {
		timeout = defaultArchiveTimeout
	}
	return &Ftps{cfg: cfg, timeout: timeout}
}

func (f *Ftps) Name() string {
	return `FTPS`
}

// Init the FTPs server configuration
func (f *Ftps) Init() error {

	if f.cfg.User == `` {
		return fmt.Errorf(`user not set. Cannot continue`)
	}

	if f.cfg.Password == `` {
		return fmt.Errorf(`no password set in FTPS_PASSWORD. No authentication possible`)
	}

	f.tlsConfig = &tls.Config{
		ServerName:         f.cfg.Host,
		InsecureSkipVerify: f.cfg.SkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
	if f.cfg.SkipVerify {
		rlog.Warnf(`FTPS_SKIP_VERIFY set. Server certificate of %s will not be checked`, f.cfg.Host)
	}

	rlog.Infof("Archiving to FTPS %s:%d%s", f.cfg.Host, f.cfg.Port, f.cfg.RemoteDir)

	return nil
}

// Upload the snapshot to the FTPS server
func (f *Ftps) Upload(localPath, remoteName string) error {

	if f.tlsConfig == nil {
		return errors.New(`ftps archive not initialised`)
	}

	// open upload file before connect
	uploadFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("cannot open file %s, because %w", localPath, err)
	}
	defer uploadFile.Close()

	localStat, err := uploadFile.Stat()
	if err != nil {
		return fmt.Errorf("error stat'ing local file: %w", err)
	}

	options := []ftp.DialOption{ftp.DialWithExplicitTLS(f.tlsConfig), ftp.DialWithTimeout(f.timeout)}

	conn, err := ftp.Dial(fmt.Sprintf("%s:%d", f.cfg.Host, f.cfg.Port), options...)
	if err != nil {
		return fmt.Errorf("error creating FTPs connection, because: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(f.cfg.User, f.cfg.Password); err != nil {
		return fmt.Errorf("error authenticating against FTPs server, because : %w", err)
	}

	if err := f.ensureDirExists(conn); err != nil {
		return err
	}

	remotePath := f.cfg.RemoteDir + remoteName
	if err := conn.Stor(remotePath, uploadFile); err != nil {
		return fmt.Errorf("error uploading file %s to FTPs server, because : %w", remoteName, err)
	}

	remoteSize, err := conn.FileSize(remotePath)
	if err != nil {
		return fmt.Errorf("error checking size of %s on FTPs server, because : %w", remoteName, err)
	}

	if localStat.Size() != remoteSize {
		return fmt.Errorf("file size mismatch after upload: local %d bytes, remote %d bytes", localStat.Size(), remoteSize)
	}

	rlog.Infof(`File %s was archived to %s:%s`, filepath.Base(localPath), f.cfg.Host, remotePath)

	return nil
}

// ensureDirExists changes into the archive directory, creating it if needed
func (f *Ftps) ensureDirExists(conn *ftp.ServerConn) error {

	dir := strings.TrimSuffix(f.cfg.RemoteDir, `/`)
	if dir == `` {
		return nil
	}

	if err := conn.ChangeDir(dir); err == nil {
		return nil
	}

	if err := conn.MakeDir(dir); err != nil {
		return fmt.Errorf("error creating upload directory %s, because: %w", dir, err)
	}

	if err := conn.ChangeDir(dir); err != nil {
		return fmt.Errorf("error changing into created directory %s, because: %w", dir, err)
	}

	return nil
}
