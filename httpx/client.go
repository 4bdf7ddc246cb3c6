package httpx

import (
	"io"
	"strings"
)

// Client wraps a Controller with error-returning helpers.
type Client struct {
	Controller *Controller
}

// Do executes r and converts a connector status into an error. A non-nil
// Response always has a Body the caller must close.
func (c *Client) Do(r *Request) (*Response, error) {
	ctl := c.Controller
	if ctl == nil {
		ctl = DefaultController
	}
	resp := ctl.Execute(r.Context(), r)
	if err := resp.Status.Err(); err != nil {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) Get(url string) (*Response, error) {
	r, err := NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(r)
}

// Post sends body with the given Content-Type. An empty contentType sends
// no Content-Type header.
func (c *Client) Post(url, contentType string, body io.Reader) (*Response, error) {
	r, err := NewRequest("POST", url, body)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(contentType) != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return c.Do(r)
}
