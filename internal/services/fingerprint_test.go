package services

import "testing"

func TestFingerprint(t *testing.T) {
	const ua = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"
	const lang = "en-US,en;q=0.9"

	a := Fingerprint(ua, lang, "203.0.113.9")
	if a == "" {
		t.Fatal("empty fingerprint for full inputs")
	}
	if len(a) != 16 {
		t.Fatalf("fingerprint length = %d, want 16", len(a))
	}
	if b := Fingerprint(ua, lang, "203.0.113.9"); b != a {
		t.Fatalf("not deterministic: %q vs %q", a, b)
	}

	// DHCP churn inside the /24 keeps the fingerprint stable
	if b := Fingerprint(ua, lang, "203.0.113.250"); b != a {
		t.Fatalf("same network produced different fingerprints: %q vs %q", a, b)
	}

	// a different network breaks it
	if b := Fingerprint(ua, lang, "198.51.100.9"); b == a {
		t.Fatal("different networks collided")
	}

	// a different browser breaks it
	if b := Fingerprint("curl/8.0", lang, "203.0.113.9"); b == a {
		t.Fatal("different user agents collided")
	}

	if got := Fingerprint("", "", ""); got != "" {
		t.Fatalf("fingerprint of nothing = %q, want empty", got)
	}
}

func TestIPPrefix(t *testing.T) {
	tests := []struct {
		ip   string
		want string
	}{
		{"203.0.113.9", "203.0.113"},
		{"2001:db8:85a3:8d3:1319:8a2e:370:7348", "2001:db8:85a3:8d3"},
		{"not-an-ip", "not-an-ip"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ipPrefix(tt.ip); got != tt.want {
			t.Errorf("ipPrefix(%q) = %q, want %q", tt.ip, got, tt.want)
		}
	}
}
