package fetch

import (
	"context"
	"io"
	"net/http"
	"time"
)

// maxBodyBytes caps how much of a response body is read. A lab server that
// streams forever must not be able to stall the grader.
const maxBodyBytes = 1 << 20

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Fetcher issues single HTTP requests with a hard per-request deadline.
// Every failure mode (connection refused, DNS error, timeout, protocol
// garbage, a body that dies mid-read) collapses to a nil *Response, so
// callers branch on reachability instead of unwinding through errors.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

func New(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Fetch performs one request using the fetcher's default timeout.
func (f *Fetcher) Fetch(ctx context.Context, method, url string) *Response {
	return f.FetchTimeout(ctx, method, url, f.timeout)
}

// FetchTimeout performs one request with an explicit timeout. The request
// context is cancelled on return, aborting any in-flight body read.
func (f *Fetcher) FetchTimeout(ctx context.Context, method, url string, timeout time.Duration) *Response {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, url, nil)
	if err != nil {
		return nil
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}
}
