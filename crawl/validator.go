// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package crawl

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultMaxURLLength caps accepted URLs.
const DefaultMaxURLLength = 2048

var (
	domainPattern = regexp.MustCompile(
		`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)
	urlInTextPattern = regexp.MustCompile(`https?://[^\s<>"']+`)
)

// URLInfo describes a validated, normalized URL.
type URLInfo struct {
	Original   string
	Normalized string
	Scheme     string
	Domain     string
	Path       string
}

// Validator screens URLs against a scheme allow-list, a domain
// block-list, and a length cap, and normalizes them for consistent
// identity (lowercased host, default ports stripped, bare "/" path
// dropped).
type Validator struct {
	allowedSchemes map[string]struct{}
	blockedDomains map[string]struct{}
	maxURLLength   int
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithAllowedSchemes replaces the default http/https allow-list.
func WithAllowedSchemes(schemes ...string) ValidatorOption {
	return func(v *Validator) {
		v.allowedSchemes = make(map[string]struct{}, len(schemes))
		for _, s := range schemes {
			v.allowedSchemes[strings.ToLower(s)] = struct{}{}
		}
	}
}

// WithBlockedDomains adds hosts that are refused outright.
func WithBlockedDomains(domains ...string) ValidatorOption {
	return func(v *Validator) {
		for _, d := range domains {
			v.blockedDomains[strings.ToLower(d)] = struct{}{}
		}
	}
}

// WithMaxURLLength overrides the URL length cap.
func WithMaxURLLength(n int) ValidatorOption {
	return func(v *Validator) {
		v.maxURLLength = n
	}
}

// NewValidator creates a Validator allowing http and https.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		allowedSchemes: map[string]struct{}{"http": {}, "https": {}},
		blockedDomains: make(map[string]struct{}),
		maxURLLength:   DefaultMaxURLLength,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate normalizes rawURL and checks it against the validator's
// rules. On failure the returned error wraps one of the package
// sentinels.
func (v *Validator) Validate(rawURL string) (URLInfo, error) {
	info := URLInfo{Original: rawURL}

	if len(rawURL) > v.maxURLLength {
		return info, fmt.Errorf("%w: %d > %d", ErrURLTooLong, len(rawURL), v.maxURLLength)
	}

	normalized, err := v.Normalize(rawURL)
	if err != nil {
		return info, err
	}
	parsed, err := url.Parse(normalized)
	if err != nil {
		return info, fmt.Errorf("%w: %w", ErrUnparseableURL, err)
	}

	info.Normalized = normalized
	info.Scheme = parsed.Scheme
	info.Domain = strings.ToLower(parsed.Host)
	info.Path = parsed.Path

	if _, ok := v.allowedSchemes[parsed.Scheme]; !ok {
		return info, fmt.Errorf("%w: %q", ErrSchemeNotAllowed, parsed.Scheme)
	}

	if info.Domain == "" {
		return info, ErrMissingHost
	}

	if _, blocked := v.blockedDomains[hostname(info.Domain)]; blocked {
		return info, fmt.Errorf("%w: %q", ErrDomainBlocked, info.Domain)
	}

	if !domainPattern.MatchString(hostname(info.Domain)) {
		return info, fmt.Errorf("%w: %q", ErrInvalidDomain, info.Domain)
	}

	return info, nil
}

// Normalize lowercases the scheme and host, prepends https:// when no
// scheme is present, strips default ports, and drops a bare "/" path.
func (v *Validator) Normalize(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnparseableURL, err)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	switch {
	case parsed.Scheme == "http" && strings.HasSuffix(parsed.Host, ":80"):
		parsed.Host = strings.TrimSuffix(parsed.Host, ":80")
	case parsed.Scheme == "https" && strings.HasSuffix(parsed.Host, ":443"):
		parsed.Host = strings.TrimSuffix(parsed.Host, ":443")
	}

	if parsed.Path == "/" {
		parsed.Path = ""
	}

	return parsed.String(), nil
}

// ExtractURLs finds and normalizes http(s) URLs embedded in text.
// URLs that fail to normalize are skipped.
func (v *Validator) ExtractURLs(text string) []string {
	matches := urlInTextPattern.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		if normalized, err := v.Normalize(m); err == nil {
			urls = append(urls, normalized)
		}
	}
	return urls
}

// SameDomain reports whether two URLs share a host.
func (v *Validator) SameDomain(url1, url2 string) bool {
	p1, err1 := url.Parse(url1)
	p2, err2 := url.Parse(url2)
	if err1 != nil || err2 != nil {
		return false
	}
	return strings.ToLower(p1.Host) == strings.ToLower(p2.Host)
}

// hostname strips an explicit port, if any.
func hostname(host string) string {
	if i := strings.LastIndex(host, ":"); i >= 0 {
		return host[:i]
	}
	return host
}
