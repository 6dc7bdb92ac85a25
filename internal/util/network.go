// Copyright (c) 2025-2026 Galleria Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
)

// MaxExternalURLLength is the maximum allowed length for an external URL
// stored on a tenant record.
const MaxExternalURLLength = 2048

// privateIPBlocks holds the private and reserved ranges from RFC 1918,
// RFC 4193, RFC 3927, RFC 5737 and friends.
var privateIPBlocks = parseCIDRBlocks(
	"10.0.0.0/8",      // RFC 1918
	"172.16.0.0/12",   // RFC 1918
	"192.168.0.0/16",  // RFC 1918
	"127.0.0.0/8",     // loopback
	"169.254.0.0/16",  // link-local
	"0.0.0.0/8",       // "this" network
	"100.64.0.0/10",   // CGNAT shared space
	"192.0.2.0/24",    // documentation
	"198.51.100.0/24", // documentation
	"203.0.113.0/24",  // documentation
	"::1/128",         // IPv6 loopback
	"fe80::/10",       // IPv6 link-local
	"fc00::/7",        // IPv6 unique local
)

func parseCIDRBlocks(cidrs ...string) []*net.IPNet {
	blocks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		if _, block, err := net.ParseCIDR(cidr); err == nil {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// IsPrivateIP reports whether ip falls in a private or reserved range.
// A nil IP counts as private.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	return slices.ContainsFunc(privateIPBlocks, func(block *net.IPNet) bool {
		return block.Contains(ip)
	})
}

// ValidateExternalURL validates a public-facing URL stored on a record,
// such as a tenant website. It checks the scheme and rejects localhost
// and raw private IP hosts. Hostnames are not resolved; the backend
// never fetches these URLs itself.
func ValidateExternalURL(rawURL string) error {
	if len(rawURL) > MaxExternalURLLength {
		return fmt.Errorf("URL exceeds maximum length of %d characters", MaxExternalURLLength)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("URL must use http or https scheme")
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return errors.New("URL must have a hostname")
	}
	if lower := strings.ToLower(hostname); lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return errors.New("localhost URLs are not allowed")
	}
	if ip := net.ParseIP(hostname); ip != nil && IsPrivateIP(ip) {
		return errors.New("private or reserved IP addresses are not allowed")
	}

	return nil
}
