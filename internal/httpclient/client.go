// Package httpclient is an outbound resty-based HTTP client, kept from
// the teacher (internal/client/client.go) and repurposed: it is no
// longer on the primary ingest path (RTSP now goes through gortsplib,
// push through multipart), but remains as the utility operators use to
// probe a camera's companion HTTP snapshot endpoint for reachability
// before registering its rtsp:// URL with the control plane.
package httpclient

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps a tuned resty.Client for short-lived snapshot fetches.
type Client struct {
	resty *resty.Client
}

// New builds a Client with the same timeout/retry/transport tuning the
// teacher used for its camera polling loop.
func New() *Client {
	r := resty.New().
		SetTimeout(5 * time.Second).
		SetHeader("Accept", "image/jpeg, image/png").
		SetRetryCount(2).
		SetRetryWaitTime(50 * time.Millisecond).
		SetDisableWarn(true)

	r.SetTransport(&http.Transport{
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ResponseHeaderTimeout: 3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	})

	return &Client{resty: r}
}

// ProbeSnapshot issues a GET against url (retried up to twice on
// transport errors, per the client's retry settings) and returns the raw
// response body, for operators validating a camera's HTTP snapshot
// endpoint is reachable before registering it.
func (c *Client) ProbeSnapshot(url string) ([]byte, error) {
	resp, err := c.resty.R().Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode()}
	}
	return resp.Body(), nil
}

// StatusError reports a non-200 response from ProbeSnapshot.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return http.StatusText(e.Code)
}
