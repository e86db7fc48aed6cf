package util

import (
	"context"
	"fmt"
	"net/url"

	"parcel-harvester/pkg/models"

	"github.com/temoto/robotstxt"
)

// Fetcher is the slice of the HTTP session robots checks need.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*models.FetchedPage, error)
}

func GetDomainFromURL(urlString string) (string, error) {
	parsedURL, err := url.Parse(urlString)
	if err != nil {
		return "", err
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("%q is not an absolute url", urlString)
	}
	return parsedURL.Scheme + "://" + parsedURL.Host, nil
}

// FetchRobotsTXT loads robots.txt through the session, so the request is
// rate limited and identified like every other. A missing file is empty.
func FetchRobotsTXT(ctx context.Context, f Fetcher, domain string) (string, error) {
	page, err := f.Get(ctx, domain+"/robots.txt")
	if err != nil {
		return "", err
	}
	switch {
	case page.Found():
		return string(page.Body), nil
	case page.StatusCode >= 400 && page.StatusCode < 500:
		return "", nil
	}
	return "", fmt.Errorf("robots.txt for %s: status %d", domain, page.StatusCode)
}

func IsAllowedByRobotsTXT(robotsTXTContent, URL, agent string) bool {
	robots, err := robotstxt.FromString(robotsTXTContent)
	if err != nil {
		// if we cant parse robots.txt, assume its allowed
		return true
	}

	parsedURL, err := url.Parse(URL)
	if err != nil {
		// assume not allowed if we cant parse url
		return false
	}

	return robots.TestAgent(parsedURL.Path, agent)
}

// CheckAllowed refuses to go on if robots.txt disallows any of urls for agent.
// All urls must share one host.
func CheckAllowed(ctx context.Context, f Fetcher, agent string, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}
	domain, err := GetDomainFromURL(urls[0])
	if err != nil {
		return err
	}
	content, err := FetchRobotsTXT(ctx, f, domain)
	if err != nil {
		return err
	}
	for _, u := range urls {
		if !IsAllowedByRobotsTXT(content, u, agent) {
			return fmt.Errorf("%s is disallowed by %s/robots.txt", u, domain)
		}
	}
	return nil
}
