package connectors

import (
	"net/http"
	"strings"

	"doorbell-uploader/config"
	"doorbell-uploader/notifier"

	"github.com/slack-go/slack"
)

// NewSlackClient returns a factory for Slack clients sharing one http.Client
// bound by the configured timeout
func NewSlackClient(cfg config.Slack) notifier.ClientFactory {

	httpClient := &http.Client{Timeout: cfg.Timeout}

	options := []slack.Option{slack.OptionHTTPClient(httpClient)}
	if cfg.APIURL != `` {
		options = append(options, slack.OptionAPIURL(strings.TrimSuffix(cfg.APIURL, `/`)+`/`))
	}

	return func(token string) notifier.Client {
		return slack.New(token, options...)
	}
}
