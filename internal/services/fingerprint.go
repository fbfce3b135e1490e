package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint derives a coarse browser/device fingerprint from the
// request headers and the client IP's network prefix. Deliberately
// lossy: it groups "same browser on the same network", not a person.
func Fingerprint(userAgent, acceptLanguage, ip string) string {
	ua := strings.TrimSpace(userAgent)
	lang := strings.TrimSpace(acceptLanguage)
	prefix := ipPrefix(ip)
	if ua == "" && lang == "" && prefix == "" {
		return ""
	}
	h := sha256.New()
	h.Write([]byte(ua))
	h.Write([]byte{0})
	h.Write([]byte(lang))
	h.Write([]byte{0})
	h.Write([]byte(prefix))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ipPrefix keeps the first three IPv4 octets (or the first half of an
// IPv6 address) so DHCP churn within a network does not break the
// fingerprint.
func ipPrefix(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	if parts := strings.Split(ip, "."); len(parts) == 4 {
		return strings.Join(parts[:3], ".")
	}
	if parts := strings.Split(ip, ":"); len(parts) > 4 {
		return strings.Join(parts[:4], ":")
	}
	return ip
}
