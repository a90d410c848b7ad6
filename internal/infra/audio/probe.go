package audio

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"
)

// Prober checks that a source can be fetched before it is loaded.
type Prober interface {
	Probe(ctx context.Context, src string) error
}

// HTTPProbe issues a HEAD request for http(s) sources.
// Other schemes are accepted without a request.
type HTTPProbe struct {
	client *retryablehttp.Client
}

// NewHTTPProbe creates an HTTPProbe with the given retry budget.
func NewHTTPProbe(retryMax int, timeout time.Duration) *HTTPProbe {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	return &HTTPProbe{client: client}
}

func (p *HTTPProbe) Probe(ctx context.Context, src string) error {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, src, nil)
	if err != nil {
		return errors.Wrapf(err, "invalid source %q", src)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "source %q unreachable", src)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.Newf("source %q returned status %d", src, resp.StatusCode)
	}
	return nil
}
