package password

import (
	"bufio"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// HIBPClient queries the Have I Been Pwned range endpoint using the
// k-anonymity protocol: only the first five characters of the password's SHA-1
// digest leave the process; the suffix is matched locally against the
// candidate set the service returns.
type HIBPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries uint64
}

// NewHIBPClient returns a client for the given range endpoint. timeout bounds
// each HTTP call; transient failures are retried maxRetries times with
// exponential backoff before the lookup is reported as unavailable.
func NewHIBPClient(baseURL, apiKey string, timeout time.Duration, maxRetries uint64) *HIBPClient {
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HIBPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// IsBreached reports whether password appears in the breach corpus. An error
// means the service was unreachable after retries; callers treat that as a
// skipped check, not a rejection.
func (c *HIBPClient) IsBreached(ctx context.Context, password string) (bool, error) {
	sum := sha1.Sum([]byte(password))
	digest := strings.ToUpper(fmt.Sprintf("%x", sum))
	prefix, suffix := digest[:5], digest[5:]

	var found bool
	operation := func() error {
		var err error
		found, err = c.lookup(ctx, prefix, suffix)
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return false, err
	}
	return found, nil
}

func (c *HIBPClient) lookup(ctx context.Context, prefix, suffix string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+prefix, nil)
	if err != nil {
		return false, backoff.Permanent(err)
	}
	if c.apiKey != "" {
		req.Header.Set("hibp-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("breach lookup: unexpected status %d", resp.StatusCode)
	}

	// Response is newline-delimited "SUFFIX:COUNT" pairs for the prefix bucket.
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		candidate, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(candidate, suffix) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, err
	}
	return false, nil
}
