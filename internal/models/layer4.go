// internal/models/layer4.go
package models

import "encoding/json"

// Layer4 holds stream (TCP/UDP) proxies rendered into a stream block.
type Layer4 struct {
	Servers   []L4Server   `json:"servers,omitempty"`
	Upstreams []L4Upstream `json:"upstreams,omitempty"`
}

// FindUpstream returns the layer4 upstream called name, or nil.
func (l *Layer4) FindUpstream(name string) *L4Upstream {
	if l == nil {
		return nil
	}
	for i := range l.Upstreams {
		if l.Upstreams[i].Name == name {
			return &l.Upstreams[i]
		}
	}
	return nil
}

type L4Server struct {
	Listen   *L4Listen `json:"listen,omitempty"`
	Upstream string    `json:"upstream,omitempty"`
	Snippet  string    `json:"snippet,omitempty"`
}

type L4Listen struct {
	Address  string `json:"address,omitempty"`
	Protocol string `json:"protocol,omitempty"`
	TLS      *TLS   `json:"tls,omitempty"`
}

func (l *L4Listen) UnmarshalJSON(b []byte) error {
	type plain L4Listen
	p := plain{Protocol: "tcp"}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*l = L4Listen(p)
	return nil
}

// UDP reports whether the listener is a datagram socket.
func (l L4Listen) UDP() bool { return l.Protocol == "udp" }

type L4Upstream struct {
	Name    string   `json:"name"`
	Origin  []Origin `json:"origin"`
	Snippet string   `json:"snippet,omitempty"`
}
