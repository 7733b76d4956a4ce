package shard

import (
	"strings"
	"testing"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Endpoint
		wantErr bool
	}{
		{"plain", "localhost:6379", Endpoint{Host: "localhost", Port: 6379}, false},
		{"with credential", "s3cret@10.0.0.2:6380", Endpoint{Host: "10.0.0.2", Port: 6380, Credential: "s3cret"}, false},
		{"credential containing at", "a@b@redis:7000", Endpoint{Host: "redis", Port: 7000, Credential: "a@b"}, false},
		{"ipv6", "[::1]:6379", Endpoint{Host: "::1", Port: 6379}, false},
		{"missing port", "localhost", Endpoint{}, true},
		{"bad port", "localhost:abc", Endpoint{}, true},
		{"port out of range", "localhost:70000", Endpoint{}, true},
		{"empty host", ":6379", Endpoint{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEndpoint(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEndpoint(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEndpoint(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEndpointAddr(t *testing.T) {
	if got := NewEndpoint("::1", 6379, "").Addr(); got != "[::1]:6379" {
		t.Errorf("Addr() = %q, want [::1]:6379", got)
	}
	if got := NewEndpoint("redis-a", 6379, "").Addr(); got != "redis-a:6379" {
		t.Errorf("Addr() = %q, want redis-a:6379", got)
	}
}

func TestEndpointStringHidesCredential(t *testing.T) {
	e := NewEndpoint("redis-a", 6379, "hunter2")
	if strings.Contains(e.String(), "hunter2") {
		t.Errorf("String() leaked credential: %q", e.String())
	}
	if !e.HasCredential() {
		t.Error("HasCredential() = false, want true")
	}
	if NewEndpoint("redis-a", 6379, "").HasCredential() {
		t.Error("HasCredential() = true for empty credential")
	}
}

func TestEndpointEquality(t *testing.T) {
	a := NewEndpoint("h", 1, "p")
	b := NewEndpoint("h", 1, "p")
	c := NewEndpoint("h", 1, "q")
	if a != b {
		t.Error("identical endpoints should be equal")
	}
	if a == c {
		t.Error("endpoints with different credentials should differ")
	}
}
