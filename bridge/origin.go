package bridge

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Origin is a scheme://host[:port] triple in normalized form: lower-case,
// with the scheme's default port elided.
type Origin struct {
	Scheme string
	Host   string
}

func (o Origin) String() string {
	return o.Scheme + "://" + o.Host
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// ParseOrigin parses an allow-list entry. Paths, queries and fragments are
// not allowed; a trailing slash is tolerated.
func ParseOrigin(raw string) (Origin, error) {
	u, err := url.Parse(strings.TrimSuffix(strings.TrimSpace(raw), "/"))
	if err != nil {
		return Origin{}, fmt.Errorf("invalid origin %q: %w", raw, err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return Origin{}, fmt.Errorf("invalid origin %q: must be scheme://host[:port]", raw)
	}
	return originOf(u)
}

// originOf extracts the normalized origin of an absolute http(s) URL.
func originOf(u *url.URL) (Origin, error) {
	scheme := strings.ToLower(u.Scheme)
	if _, ok := defaultPorts[scheme]; !ok {
		return Origin{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Origin{}, fmt.Errorf("missing host in %q", u.String())
	}
	port := u.Port()
	if port == "" || port == defaultPorts[scheme] {
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		return Origin{Scheme: scheme, Host: host}, nil
	}
	return Origin{Scheme: scheme, Host: net.JoinHostPort(host, port)}, nil
}

// AllowList is an ordered, immutable set of permitted origins.
type AllowList struct {
	origins []Origin
}

// NewAllowList parses every entry; any invalid entry fails the whole list.
func NewAllowList(entries []string) (AllowList, error) {
	origins := make([]Origin, 0, len(entries))
	for _, e := range entries {
		o, err := ParseOrigin(e)
		if err != nil {
			return AllowList{}, err
		}
		origins = append(origins, o)
	}
	return AllowList{origins: origins}, nil
}

// Allows reports whether o matches an entry exactly.
func (a AllowList) Allows(o Origin) bool {
	for _, allowed := range a.origins {
		if allowed == o {
			return true
		}
	}
	return false
}
