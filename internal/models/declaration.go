// internal/models/declaration.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ConfigRequest is the root document submitted to the pipeline.
type ConfigRequest struct {
	Output      Output      `json:"output"`
	Declaration Declaration `json:"declaration"`
}

// DecodeConfigRequest decodes a document that already passed schema
// validation, applying field defaults.
func DecodeConfigRequest(raw []byte) (*ConfigRequest, error) {
	var req ConfigRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode declaration: %w", err)
	}
	return &req, nil
}

// Declaration is the topology description.
type Declaration struct {
	Servers      []Server           `json:"servers,omitempty"`
	Upstreams    []Upstream         `json:"upstreams,omitempty"`
	Caching      []CachingPolicy    `json:"caching,omitempty"`
	RateLimit    []RateLimitProfile `json:"rate_limit,omitempty"`
	NginxPlusAPI *NginxPlusAPI      `json:"nginx_plus_api,omitempty"`
	Layer4       *Layer4            `json:"layer4,omitempty"`
}

// FindUpstream returns the upstream called name, or nil.
func (d *Declaration) FindUpstream(name string) *Upstream {
	for i := range d.Upstreams {
		if d.Upstreams[i].Name == name {
			return &d.Upstreams[i]
		}
	}
	return nil
}

// CachingPolicy returns the caching policy called name, or nil.
func (d *Declaration) CachingPolicy(name string) *CachingPolicy {
	for i := range d.Caching {
		if d.Caching[i].Name == name {
			return &d.Caching[i]
		}
	}
	return nil
}

// RateLimitProfile returns the rate limit profile called name, or nil.
func (d *Declaration) RateLimitProfile(name string) *RateLimitProfile {
	for i := range d.RateLimit {
		if d.RateLimit[i].Name == name {
			return &d.RateLimit[i]
		}
	}
	return nil
}

type Server struct {
	Names     []string   `json:"names,omitempty"`
	Listen    *Listen    `json:"listen,omitempty"`
	Log       *Log       `json:"log,omitempty"`
	Locations []Location `json:"locations,omitempty"`
	Snippet   string     `json:"snippet,omitempty"`
}

type Listen struct {
	Address string `json:"address,omitempty"`
	HTTP2   bool   `json:"http2,omitempty"`
	TLS     *TLS   `json:"tls,omitempty"`
}

// TLS is structurally open; its presence enables TLS termination.
type TLS struct {
	Certificate string   `json:"certificate,omitempty"`
	Key         string   `json:"key,omitempty"`
	Chain       string   `json:"chain,omitempty"`
	Ciphers     string   `json:"ciphers,omitempty"`
	Protocols   []string `json:"protocols,omitempty"`
}

func (t *TLS) UnmarshalJSON(b []byte) error {
	type plain TLS
	p := plain{}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.Protocols == nil {
		p.Protocols = []string{"TLSv1.3"}
	}
	*t = TLS(p)
	return nil
}

type Log struct {
	Access string `json:"access,omitempty"`
	Error  string `json:"error,omitempty"`
}

type Location struct {
	URI         string     `json:"uri"`
	URIMatch    URIMatch   `json:"urimatch,omitempty"`
	Upstream    string     `json:"upstream,omitempty"`
	Caching     string     `json:"caching,omitempty"`
	RateLimit   *RateLimit `json:"rate_limit,omitempty"`
	HealthCheck bool       `json:"health_check,omitempty"`
	Snippet     string     `json:"snippet,omitempty"`
}

func (l *Location) UnmarshalJSON(b []byte) error {
	type plain Location
	p := plain{URIMatch: URIMatchPrefix}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*l = Location(p)
	return nil
}

// UpstreamName is Upstream without an http:// or https:// scheme.
func (l Location) UpstreamName() string {
	_, name := splitScheme(l.Upstream)
	return name
}

// ProxyPass is the proxy_pass target for the location, defaulting to http.
func (l Location) ProxyPass() string {
	scheme, name := splitScheme(l.Upstream)
	return scheme + "://" + name
}

func splitScheme(upstream string) (string, string) {
	for _, scheme := range []string{"http", "https"} {
		if rest, ok := strings.CutPrefix(upstream, scheme+"://"); ok {
			return scheme, rest
		}
	}
	return "http", upstream
}

type RateLimit struct {
	Profile  string `json:"profile"`
	HTTPCode int    `json:"httpcode"`
	Burst    int    `json:"burst"`
	Delay    int    `json:"delay"`
}

func (r *RateLimit) UnmarshalJSON(b []byte) error {
	type plain RateLimit
	p := plain{HTTPCode: 429}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = RateLimit(p)
	return nil
}

type Upstream struct {
	Name    string   `json:"name"`
	Origin  []Origin `json:"origin"`
	Sticky  *Sticky  `json:"sticky,omitempty"`
	Snippet string   `json:"snippet,omitempty"`
}

type Origin struct {
	Server      string `json:"server"`
	Weight      *int   `json:"weight,omitempty"`
	MaxFails    *int   `json:"max_fails,omitempty"`
	FailTimeout string `json:"fail_timeout,omitempty"`
	MaxConns    *int   `json:"max_conns,omitempty"`
	SlowStart   string `json:"slow_start,omitempty"`
	Backup      bool   `json:"backup,omitempty"`
}

// Params returns the optional server parameters that are set, in nginx
// order: weight=, max_fails=, fail_timeout=, max_conns=, slow_start=, backup.
func (o Origin) Params() []string {
	var out []string
	if o.Weight != nil {
		out = append(out, "weight="+strconv.Itoa(*o.Weight))
	}
	if o.MaxFails != nil {
		out = append(out, "max_fails="+strconv.Itoa(*o.MaxFails))
	}
	if o.FailTimeout != "" {
		out = append(out, "fail_timeout="+o.FailTimeout)
	}
	if o.MaxConns != nil {
		out = append(out, "max_conns="+strconv.Itoa(*o.MaxConns))
	}
	if o.SlowStart != "" {
		out = append(out, "slow_start="+o.SlowStart)
	}
	if o.Backup {
		out = append(out, "backup")
	}
	return out
}

type Sticky struct {
	Cookie  string `json:"cookie"`
	Expires string `json:"expires,omitempty"`
	Domain  string `json:"domain,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Params returns the optional sticky cookie attributes that are set.
func (s Sticky) Params() []string {
	var out []string
	if s.Expires != "" {
		out = append(out, "expires="+s.Expires)
	}
	if s.Domain != "" {
		out = append(out, "domain="+s.Domain)
	}
	if s.Path != "" {
		out = append(out, "path="+s.Path)
	}
	return out
}

// CachingPolicy is an open object; only the keys below are rendered.
type CachingPolicy struct {
	Name  string       `json:"name,omitempty"`
	Key   string       `json:"key,omitempty"`
	Size  string       `json:"size,omitempty"`
	Valid []CacheValid `json:"valid,omitempty"`
}

func (c *CachingPolicy) UnmarshalJSON(b []byte) error {
	type plain CachingPolicy
	p := plain{Size: "10m"}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = CachingPolicy(p)
	return nil
}

type CacheValid struct {
	Codes []int `json:"codes,omitempty"`
	TTL   TTL   `json:"ttl,omitempty"`
}

func (v *CacheValid) UnmarshalJSON(b []byte) error {
	type plain CacheValid
	p := plain{}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.Codes == nil {
		p.Codes = []int{200}
	}
	if p.TTL == "" {
		p.TTL = "60"
	}
	*v = CacheValid(p)
	return nil
}

// CodeList returns Codes as the parameters of a proxy_cache_valid directive.
func (v CacheValid) CodeList() []string {
	out := make([]string, len(v.Codes))
	for i, c := range v.Codes {
		out[i] = strconv.Itoa(c)
	}
	return out
}

// TTL accepts either a JSON string ("10m") or an integer number of seconds.
type TTL string

func (t *TTL) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = TTL(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("ttl must be a string or an integer: %w", err)
	}
	*t = TTL(n.String())
	return nil
}

type RateLimitProfile struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	Size string `json:"size"`
	Rate string `json:"rate"`
}

type NginxPlusAPI struct {
	Write    bool   `json:"write"`
	Listen   string `json:"listen"`
	AllowACL string `json:"allow_acl"`
}

func (a *NginxPlusAPI) UnmarshalJSON(b []byte) error {
	type plain NginxPlusAPI
	p := plain{Write: true, Listen: "127.0.0.1:8080", AllowACL: "127.0.0.1"}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*a = NginxPlusAPI(p)
	return nil
}
