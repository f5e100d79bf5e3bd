package billing

import (
	"errors"
	"net/url"
)

// Config holds the billing module configuration.
type Config struct {
	// AppBaseURL is the single status-display surface the provider
	// redirects back to after checkout, regardless of outcome. The
	// three callback URLs are derived from it with a status query
	// parameter.
	AppBaseURL string `env:"APP_BASE_URL,required"`
}

// callbackURLs derives the success, cancel, and failure redirect URLs
// from the configured base URL.
func (c Config) callbackURLs() (success, cancel, failure string, err error) {
	if c.AppBaseURL == "" {
		return "", "", "", ErrMissingBaseURL
	}

	base, err := url.Parse(c.AppBaseURL)
	if err != nil {
		return "", "", "", errors.Join(ErrMissingBaseURL, err)
	}

	withStatus := func(status string) string {
		u := *base
		q := u.Query()
		q.Set("status", status)
		u.RawQuery = q.Encode()
		return u.String()
	}

	return withStatus("success"), withStatus("cancelled"), withStatus("failed"), nil
}
