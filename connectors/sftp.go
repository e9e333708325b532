package connectors

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"doorbell-uploader/config"

	"github.com/pkg/sftp"
	"github.com/romana/rlog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

type Sftp struct {
	cfg       config.Sftp
	timeout   time.Duration
	sshConfig *ssh.ClientConfig
}

// NewSftp archive. timeout bounds the whole session from dial to close.
func NewSftp(cfg config.Sftp, timeout time.Duration) *Sftp {
	if timeout <= 0 {
		timeout = defaultArchiveTimeout
	}
	return &Sftp{cfg: cfg, timeout: timeout}
}

func (s *Sftp) Name() string {
	return `SFTP`
}

// Init the ssh client configuration
func (s *Sftp) Init() error {

	if s.cfg.User == `` {
		return fmt.Errorf(`user not set. Cannot continue`)
	}

	authMethod, err := s.getAuthMethod()
	if err != nil {
		return err
	}
	s.sshConfig = &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            authMethod,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.timeout,
	}

	// hostKey / fingerprint check?
	if s.cfg.KnownHosts != `` {
		hostKeyCallback, err := knownhosts.New(s.cfg.KnownHosts)
		if err != nil {
			return fmt.Errorf(`known hosts file %s not usable, because: %w`, s.cfg.KnownHosts, err)
		}
		s.sshConfig.HostKeyCallback = hostKeyCallback
	} else {
		rlog.Warnf(`KNOWN_HOSTS not set. Falling back to unchecked hostKeys`)
	}

	rlog.Infof("Archiving to SFTP %s:%d%s", s.cfg.Host, s.cfg.Port, s.cfg.RemoteDir)

	return nil
}

// Upload the snapshot to the SFTP server
func (s *Sftp) Upload(localPath, remoteName string) error {

	if s.sshConfig == nil {
		return errors.New(`sftp archive not initialised`)
	}

	srcFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("error reading file, because : %w", err)
	}
	defer srcFile.Close()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	netConn, err := net.DialTimeout("tcp", addr, s.timeout)
	if err != nil {
		return fmt.Errorf("error creating SFTP connection, because: %w", err)
	}
	defer netConn.Close()

	// a stalled server must not keep the process alive
	if err := netConn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return fmt.Errorf("error setting SFTP deadline, because: %w", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, s.sshConfig)
	if err != nil {
		return fmt.Errorf("error creating SFTP connection, because: %w", err)
	}
	conn := ssh.NewClient(sshConn, chans, reqs)
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return fmt.Errorf("error creating new SFTP client, because : %w", err)
	}
	defer client.Close()

	remotePath := s.cfg.RemoteDir + remoteName
	dstFile, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("error creating file on SFTP server in %s because: %w", remotePath, err)
	}
	defer dstFile.Close()

	if _, err := dstFile.ReadFrom(srcFile); err != nil {
		return fmt.Errorf("error writing to SFTP server, because : %w", err)
	}

	rlog.Infof(`File %s was archived to %s`, filepath.Base(localPath), remotePath)

	return nil
}

// getAuthMethod prefers the private key, the password is the fallback
func (s *Sftp) getAuthMethod() ([]ssh.AuthMethod, error) {

	auth := []ssh.AuthMethod{}

	if s.cfg.PrivKeyFile != `` {
		authMethod, err := s.publicKeyAuth(s.cfg.PrivKeyFile)
		if err != nil {
			rlog.Warnf(`%v. Switching to password authentication ...`, err)
		} else {
			auth = append(auth, authMethod)
			rlog.Debugf(`Will use private key authentication`)
			return auth, nil
		}
	}

	if s.cfg.Password == `` {
		return auth, errors.New(`no password and no private key available. No authentication possible`)
	}
	auth = append(auth, ssh.Password(s.cfg.Password))
	rlog.Debugf(`Will use password authentication`)
	return auth, nil
}

// publicKeyAuth loads the private key and returns the authentication method
func (s *Sftp) publicKeyAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("error reading private key file because: %v", err)
	}

	var signer ssh.Signer
	if s.cfg.PrivKeyPassword != `` {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(s.cfg.PrivKeyPassword))
	} else {
		signer, err = ssh.ParsePrivateKey(key)
	}

	if err != nil {
		return nil, fmt.Errorf("error processing private key, because: %v", err)
	}

	return ssh.PublicKeys(signer), nil
}
