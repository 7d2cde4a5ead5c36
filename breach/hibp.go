// Package breach implements the k-anonymity range lookup against a
// Have-I-Been-Pwned-compatible breach corpus.
package breach

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRangeURL = "https://api.pwnedpasswords.com/range/"
	userAgent       = "phishguard/0.1"

	// prefixLen is the number of hex digits of the digest sent to the
	// service; the remaining suffix never leaves the process.
	prefixLen = 5
)

// Client queries a breach-range endpoint. The zero value is not usable;
// construct with NewClient.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option adjusts a Client.
type Option func(*Client)

// WithBaseURL points the client at an alternate range endpoint (tests,
// self-hosted mirrors). The URL must end with a trailing slash.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient returns a range client with a short timeout so a stalled
// service can never suspend a submission decision indefinitely.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 4 * time.Second},
		baseURL:    defaultRangeURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RangeResult captures whether a password hash suffix was found in the
// breach corpus.
type RangeResult struct {
	Found bool
	Count int
}

// Check queries the range API using k-anonymity.
// It never sends the full password; only a 5-hex prefix of SHA1(pw).
// SHA-1 is deliberate: the corpus is keyed by fast digests of leaked
// passwords, this is not password storage.
//
// Behavior:
//   - Computes SHA-1 of the password, upper-cases its hex, splits into
//     prefix (sent) and suffix (kept locally).
//   - Performs GET {base}/{prefix} with an Add-Padding header so response
//     sizes do not reveal range population.
//   - Streams the response line-by-line ("SUFFIX:COUNT"), matching the
//     suffix case-insensitively. Malformed lines are skipped, an empty
//     body means the prefix has no known entries.
//   - Returns a wrapped error for request build, HTTP call, non-200
//     status, or read failures; the caller decides fail-open vs closed.
func (c *Client) Check(ctx context.Context, pw string) (RangeResult, error) {
	var result RangeResult

	sum := sha1.Sum([]byte(pw))
	hashHex := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix := hashHex[:prefixLen]
	suffix := hashHex[prefixLen:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+prefix, nil)
	if err != nil {
		return result, fmt.Errorf("breach request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Add-Padding", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, fmt.Errorf("breach query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("breach query: unexpected status %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		partIdx := strings.IndexByte(line, ':')
		if partIdx == -1 {
			continue
		}

		lineSuffix := line[:partIdx]
		countStr := strings.TrimSpace(line[partIdx+1:])
		if !strings.EqualFold(lineSuffix, suffix) {
			continue
		}

		count, err := strconv.Atoi(countStr)
		if err != nil {
			// Padding entries and malformed records are skipped, not fatal.
			continue
		}
		if count <= 0 {
			continue
		}

		result.Found = true
		result.Count = count
		return result, nil
	}

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("breach read response: %w", err)
	}

	return result, nil
}
