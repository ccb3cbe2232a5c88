package security

import (
	"fmt"
	"net"
	"testing"
	"time"
)

func TestRateLimiter_Allow_NormalLoad(t *testing.T) {
	rl := NewRateLimiter(100, 100, 10000)
	sourceIP := "192.168.1.50"

	for i := 0; i < 50; i++ {
		if !rl.Allow(sourceIP) {
			t.Errorf("query %d was blocked but should be allowed under the burst", i+1)
		}
	}
}

func TestRateLimiter_Allow_ExceedsThreshold(t *testing.T) {
	rl := NewRateLimiter(1, 5, 10000)
	sourceIP := "192.168.1.100"

	allowed, blocked := 0, 0
	for i := 0; i < 50; i++ {
		if rl.Allow(sourceIP) {
			allowed++
		} else {
			blocked++
		}
	}

	if allowed > 5 {
		t.Errorf("allowed = %d, want at most the burst size (5)", allowed)
	}
	if blocked == 0 {
		t.Error("expected some queries to be blocked once the burst is exhausted")
	}
}

func TestRateLimiter_RecoversAfterInterval(t *testing.T) {
	rl := NewRateLimiter(10, 1, 10000)
	sourceIP := "192.168.1.150"

	if !rl.Allow(sourceIP) {
		t.Fatal("first query should be allowed")
	}
	if rl.Allow(sourceIP) {
		t.Fatal("second immediate query should be blocked (burst of 1 exhausted)")
	}

	time.Sleep(150 * time.Millisecond)

	if !rl.Allow(sourceIP) {
		t.Error("query after the refill interval should be allowed")
	}
}

func TestRateLimiter_BoundedMap(t *testing.T) {
	rl := NewRateLimiter(100, 100, 100)

	for i := 0; i < 150; i++ {
		rl.Allow(fmt.Sprintf("192.168.1.%d", i))
	}

	rl.mu.Lock()
	mapSize := len(rl.sources)
	rl.mu.Unlock()

	if mapSize > 100 {
		t.Errorf("map size = %d, want <= 100", mapSize)
	}

	newestIP := "10.0.0.1"
	rl.Allow(newestIP)

	rl.mu.Lock()
	_, exists := rl.sources[newestIP]
	rl.mu.Unlock()

	if !exists {
		t.Error("expected newest entry to exist after eviction")
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(100, 100, 10000)

	staleIP, activeIP := "192.168.1.1", "192.168.1.3"
	rl.Allow(staleIP)
	rl.Allow(activeIP)

	rl.mu.Lock()
	rl.sources[staleIP].lastSeen = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	rl.Cleanup(time.Minute)

	rl.mu.Lock()
	_, staleExists := rl.sources[staleIP]
	_, activeExists := rl.sources[activeIP]
	rl.mu.Unlock()

	if staleExists {
		t.Error("expected stale entry to be removed")
	}
	if !activeExists {
		t.Error("expected active entry to be retained")
	}
}

func TestIsPrivate(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want bool
	}{
		{"10.x private", "10.0.0.1", true},
		{"172.16-31 private", "172.16.0.1", true},
		{"192.168 private", "192.168.1.1", true},
		{"public IP", "8.8.8.8", false},
		{"link-local is not a private range", "169.254.1.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPrivate(net.ParseIP(tt.ip)); got != tt.want {
				t.Errorf("isPrivate(%s) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}

func TestSourceFilter_IsValid_LinkLocal(t *testing.T) {
	iface := net.Interface{Index: 1, Name: "eth0", Flags: net.FlagUp | net.FlagMulticast}
	sf, err := NewSourceFilter(iface)
	if err != nil {
		t.Fatalf("NewSourceFilter() failed: %v", err)
	}

	for _, ipStr := range []string{"169.254.1.1", "169.254.255.254", "169.254.0.1"} {
		t.Run(ipStr, func(t *testing.T) {
			if !sf.IsValid(net.ParseIP(ipStr)) {
				t.Errorf("IsValid(%s) = false, want true", ipStr)
			}
		})
	}
}

func TestSourceFilter_IsValid_LinkLocalIPv6(t *testing.T) {
	sf := &SourceFilter{}
	if !sf.IsValid(net.ParseIP("fe80::1")) {
		t.Error("IsValid(fe80::1) = false, want true (IPv6 link-local)")
	}
}

func TestSourceFilter_IsValid_SameSubnet(t *testing.T) {
	_, ipnet, err := net.ParseCIDR("192.168.1.100/24")
	if err != nil {
		t.Fatalf("ParseCIDR() failed: %v", err)
	}
	sf := &SourceFilter{ifaceAddrs: []net.IPNet{*ipnet}}

	for _, ipStr := range []string{"192.168.1.1", "192.168.1.50", "192.168.1.254"} {
		t.Run("same_"+ipStr, func(t *testing.T) {
			if !sf.IsValid(net.ParseIP(ipStr)) {
				t.Errorf("IsValid(%s) = false, want true", ipStr)
			}
		})
	}
	for _, ipStr := range []string{"192.168.2.50", "10.0.1.1"} {
		t.Run("diff_"+ipStr, func(t *testing.T) {
			if sf.IsValid(net.ParseIP(ipStr)) {
				t.Errorf("IsValid(%s) = true, want false", ipStr)
			}
		})
	}
}

func TestSourceFilter_IsValid_RejectsRoutedIP(t *testing.T) {
	_, ipnet, err := net.ParseCIDR("192.168.1.100/24")
	if err != nil {
		t.Fatalf("ParseCIDR() failed: %v", err)
	}
	sf := &SourceFilter{ifaceAddrs: []net.IPNet{*ipnet}}

	for _, ipStr := range []string{"8.8.8.8", "1.1.1.1"} {
		t.Run(ipStr, func(t *testing.T) {
			if sf.IsValid(net.ParseIP(ipStr)) {
				t.Errorf("IsValid(%s) = true, want false", ipStr)
			}
		})
	}
}
