package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	maxResolveHops = 5
	resolveTimeout = 10 * time.Second
)

var ErrTooManyRedirects = errors.New("too many redirects")

var amazonShortHosts = map[string]bool{
	"amzn.to": true,
	"amzn.eu": true,
	"a.co":    true,
}

// IsAmazonHost accepts Amazon short-link hosts and hosts whose registrable domain is
// amazon.<ICANN suffix>, e.g. www.amazon.de or amazon.co.uk.
func IsAmazonHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if amazonShortHosts[host] {
		return true
	}
	suffix, icann := publicsuffix.PublicSuffix(host)
	if !icann {
		return false
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}
	return domain == "amazon."+suffix
}

// URLResolver follows affiliate short links to their final Amazon product URL.
type URLResolver struct {
	client *http.Client
	allow  func(host string) bool
}

func NewURLResolver() *URLResolver {
	return &URLResolver{
		client: &http.Client{
			Timeout: resolveTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		allow: IsAmazonHost,
	}
}

func (r *URLResolver) check(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalidf("unsupported url scheme")
	}
	if !r.allow(u.Hostname()) {
		return invalidf("%s is not an Amazon link", u.Hostname())
	}
	return nil
}

// Resolve follows redirects hop by hop, validating every host on the way.
func (r *URLResolver) Resolve(ctx context.Context, raw string) (string, error) {
	current, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || current.Host == "" {
		return "", invalidf("invalid url")
	}
	if err := r.check(current); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	for hop := 0; hop <= maxResolveHops; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current.String(), nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; growjournal/1.0)")

		resp, err := r.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", current, err)
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()

		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			return current.String(), nil
		}
		loc := resp.Header.Get("Location")
		if loc == "" {
			return current.String(), nil
		}
		next, err := current.Parse(loc)
		if err != nil {
			return "", fmt.Errorf("bad redirect location %q: %w", loc, err)
		}
		if err := r.check(next); err != nil {
			return "", err
		}
		current = next
	}
	return "", ErrTooManyRedirects
}
