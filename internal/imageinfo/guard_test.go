package imageinfo

import (
	"context"
	"errors"
	"net/netip"
	"net/url"
	"testing"
	"time"
)

func TestAddressPolicy_Allows(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", false},
		{"10.1.2.3", false},
		{"172.16.0.9", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"224.0.0.1", false},
		{"::1", false},
		{"::", false},
		{"fe80::1", false},
		{"fd00::1", false},
		{"::ffff:127.0.0.1", false},
		{"93.184.216.34", true},
		{"2606:4700::1111", true},
	}
	policy, err := NewAddressPolicy(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := policy.Allows(netip.MustParseAddr(tt.addr)); got != tt.want {
				t.Errorf("Allows(%s) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestAddressPolicy_AllowList(t *testing.T) {
	policy, err := NewAddressPolicy([]string{"127.0.0.0/8", " 10.0.0.5 ", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !policy.Allows(netip.MustParseAddr("127.0.0.1")) {
		t.Error("expected allow-listed loopback to pass")
	}
	if !policy.Allows(netip.MustParseAddr("10.0.0.5")) {
		t.Error("expected allow-listed single address to pass")
	}
	if policy.Allows(netip.MustParseAddr("10.0.0.6")) {
		t.Error("expected neighbour of allow-listed address to stay blocked")
	}

	if _, err := NewAddressPolicy([]string{"not-a-network"}); err == nil {
		t.Error("expected invalid allow-list entry to fail")
	}
}

func TestAddressPolicy_CheckURL(t *testing.T) {
	policy, err := NewAddressPolicy(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	for _, raw := range []string{
		"data:image/png;base64,AAAA",
		"about:blank",
		"https://93.184.216.34/photo.jpg",
	} {
		if err := policy.CheckURL(ctx, mustParseURL(t, raw)); err != nil {
			t.Errorf("CheckURL(%s) unexpected error: %v", raw, err)
		}
	}
	for _, raw := range []string{
		"http://127.0.0.1:8080/admin",
		"http://[::1]/",
		"http://169.254.169.254/latest/meta-data/",
		"file:///etc/passwd",
	} {
		if err := policy.CheckURL(ctx, mustParseURL(t, raw)); !errors.Is(err, ErrBlockedAddress) {
			t.Errorf("CheckURL(%s) = %v, want ErrBlockedAddress", raw, err)
		}
	}
}

func TestClassify_InternalAddressNotContacted(t *testing.T) {
	srv := newImageServer(t, map[string][]byte{"/portrait.png": encodePNG(t, 50, 100)})
	policy, err := NewAddressPolicy(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := NewClassifier(NewFetcher(NewHTTPClient(policy), time.Second, 0), NewLRU(16))

	info := c.Classify(context.Background(), srv.URL+"/portrait.png")
	if info.Loaded || info.AspectRatio != DefaultAspectRatio {
		t.Errorf("expected fallback for loopback URL, got %+v", info)
	}
	if n := srv.hitCount("/portrait.png"); n != 0 {
		t.Errorf("expected no request to reach the server, got %d", n)
	}
}

func TestClassify_AllowListedAddressLoads(t *testing.T) {
	srv := newImageServer(t, map[string][]byte{"/portrait.png": encodePNG(t, 50, 100)})
	policy, err := NewAddressPolicy([]string{"127.0.0.0/8", "::1/128"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := NewClassifier(NewFetcher(NewHTTPClient(policy), time.Second, 0), NewLRU(16))

	info := c.Classify(context.Background(), srv.URL+"/portrait.png")
	if !info.Loaded || !info.IsPortrait {
		t.Errorf("expected allow-listed image to load, got %+v", info)
	}
	if n := srv.hitCount("/portrait.png"); n != 1 {
		t.Errorf("expected one request, got %d", n)
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	return u
}
