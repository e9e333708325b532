package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/romana/rlog"
)

const (
	DefaultComment = `🔔 Someone's at the front door!`
	DefaultTitle   = `Doorbell Snapshot`

	defaultTimeout      = 30
	defaultPollInterval = 2
	defaultPollRetries  = 100
	defaultSftpPort     = 22
	defaultFtpsPort     = 21

	// upper bound for every duration setting, larger values overflow time.Duration
	maxSeconds = 24 * 60 * 60
)

// Config is built once at startup and never changed afterwards
type Config struct {
	Slack    Slack
	Snapshot Snapshot
	Watch    Watch
	Sftp     Sftp
	Ftps     Ftps
}

type Slack struct {
	Token     string
	ChannelID string
	APIURL    string
	Timeout   time.Duration
}

type Snapshot struct {
	Path    string
	Comment string
	Title   string
}

type Watch struct {
	FileChangeInterval   time.Duration
	MaxPollRetries       int
	ShutDownAfterXerrors int
}

type Sftp struct {
	Host, User, Password string
	Port                 int
	PrivKeyFile          string
	PrivKeyPassword      string
	KnownHosts           string
	RemoteDir            string
}

// Enabled if a host is configured
func (s Sftp) Enabled() bool {
	return s.Host != ``
}

type Ftps struct {
	Host, User, Password string
	Port                 int
	RemoteDir            string
	SkipVerify           bool
}

// Enabled if a host is configured
func (f Ftps) Enabled() bool {
	return f.Host != ``
}

// LoadEnvFile reads a dotenv file into the process environment. A missing file
// is only an error if it was requested explicitly.
func LoadEnvFile(fileName string, explicit bool) error {

	_, err := os.Stat(fileName)
	if os.IsNotExist(err) && !explicit {
		rlog.Debugf(`No %s found, using process environment only`, fileName)
		return nil
	}

	if err := godotenv.Load(fileName); err != nil {
		return fmt.Errorf(`could not read %s configuration, because: %w`, fileName, err)
	}

	return nil
}

// Load the configuration from the environment
func Load() (*Config, error) {

	cfg := &Config{
		Slack: Slack{
			Token:     os.Getenv(`SLACK_BOT_TOKEN`),
			ChannelID: os.Getenv(`SLACK_CHANNEL_ID`),
			APIURL:    os.Getenv(`SLACK_API_URL`),
			Timeout:   getEnvSeconds(`SLACK_TIMEOUT`, defaultTimeout),
		},
		Snapshot: Snapshot{
			Path:    os.Getenv(`SNAPSHOT_FILE`),
			Comment: getEnv(`SNAPSHOT_COMMENT`, DefaultComment),
			Title:   getEnv(`SNAPSHOT_TITLE`, DefaultTitle),
		},
		Watch: Watch{
			FileChangeInterval:   getEnvSeconds(`WATCH_FILE_CHANGE_INTERVAL`, defaultPollInterval),
			MaxPollRetries:       getEnvInt(`WATCH_FILE_CHANGE_MAX_TIME`, defaultPollRetries),
			ShutDownAfterXerrors: getEnvInt(`SHUT_DOWN_AFTER_ERRORS`, 0),
		},
		Sftp: Sftp{
			Host:            os.Getenv(`SFTP_HOST`),
			Port:            getEnvInt(`SFTP_PORT`, defaultSftpPort),
			User:            os.Getenv(`SFTP_USER`),
			Password:        os.Getenv(`SFTP_PASSWORD`),
			PrivKeyFile:     os.Getenv(`SFTP_PRIV_KEY_FILE`),
			PrivKeyPassword: os.Getenv(`SFTP_PRIV_KEY_PASSWORD`),
			KnownHosts:      os.Getenv(`KNOWN_HOSTS`),
			RemoteDir:       remoteDir(os.Getenv(`SFTP_TARGET_DIR`)),
		},
		Ftps: Ftps{
			Host:       os.Getenv(`FTPS_HOST`),
			Port:       getEnvInt(`FTPS_PORT`, defaultFtpsPort),
			User:       os.Getenv(`FTPS_USER`),
			Password:   os.Getenv(`FTPS_PASSWORD`),
			RemoteDir:  remoteDir(os.Getenv(`FTPS_TARGET_DIR`)),
			SkipVerify: strings.ToLower(os.Getenv(`FTPS_SKIP_VERIFY`)) == `true`,
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks the values needed for a Slack upload. Mirrors validate
// themselves when they are initialised.
func (c Config) Validate() error {
	var errs []error

	if c.Slack.Token == `` {
		errs = append(errs, errors.New(`SLACK_BOT_TOKEN not set`))
	}
	if c.Slack.ChannelID == `` {
		errs = append(errs, errors.New(`SLACK_CHANNEL_ID not set`))
	}
	if c.Snapshot.Path == `` {
		errs = append(errs, errors.New(`SNAPSHOT_FILE not set`))
	}
	if c.Snapshot.Comment == `` || c.Snapshot.Title == `` {
		errs = append(errs, errors.New(`snapshot comment and title must not be empty`))
	}

	return errors.Join(errs...)
}

// remoteDir always ends with a slash, "/" if nothing was given
func remoteDir(dir string) string {
	return strings.TrimSuffix(dir, `/`) + `/`
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != `` {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == `` {
		return fallback
	}

	amount, err := strconv.Atoi(value)
	if err != nil || amount < 0 {
		rlog.Warnf(`Given %s '%s' is invalid, falling back to %d`, key, value, fallback)
		return fallback
	}
	return amount
}

func getEnvSeconds(key string, fallback int) time.Duration {
	seconds := getEnvInt(key, fallback)
	if seconds == 0 || seconds > maxSeconds {
		rlog.Warnf(`%s must be between 1 and %d seconds, falling back to %d seconds`, key, maxSeconds, fallback)
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}
