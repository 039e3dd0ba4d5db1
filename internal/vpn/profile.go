// Package vpn validates WireGuard client profiles and distributes them
// through an S3 bucket.
package vpn

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"strings"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// MetadataPrefix introduces portal metadata comments inside a profile,
// e.g. "# portal:environment=Test".
const MetadataPrefix = "# portal:"

// Profile is a parsed WireGuard client configuration.
type Profile struct {
	PrivateKey wgtypes.Key
	Addresses  []netip.Prefix
	DNS        []netip.Addr

	PublicKey           wgtypes.Key
	PresharedKey        *wgtypes.Key
	Endpoint            string
	AllowedIPs          []netip.Prefix
	PersistentKeepalive int

	// Environment is taken from the "# portal:environment=" comment.
	Environment string
}

// ParseProfileString parses a profile held in memory.
func ParseProfileString(data string) (*Profile, error) {
	return ParseProfile(strings.NewReader(data))
}

// ParseProfile parses and validates a WireGuard client profile.
func ParseProfile(r io.Reader) (*Profile, error) {
	p := &Profile{}
	scanner := bufio.NewScanner(r)
	section := ""
	var havePrivate, havePublic bool

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, MetadataPrefix) {
			k, v, ok := strings.Cut(strings.TrimPrefix(line, MetadataPrefix), "=")
			if ok && strings.TrimSpace(k) == "environment" {
				p.Environment = strings.TrimSpace(v)
			}
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.Trim(line, "[]"))
			if section != "interface" && section != "peer" {
				return nil, fmt.Errorf("line %d: unknown section [%s]", lineNo, section)
			}
			continue
		}

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected key = value", lineNo)
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		var err error
		switch section {
		case "interface":
			switch key {
			case "PrivateKey":
				p.PrivateKey, err = wgtypes.ParseKey(val)
				havePrivate = err == nil
			case "Address":
				p.Addresses, err = parsePrefixes(val)
			case "DNS":
				for _, s := range splitList(val) {
					addr, perr := netip.ParseAddr(s)
					if perr != nil {
						err = perr
						break
					}
					p.DNS = append(p.DNS, addr)
				}
			}
		case "peer":
			switch key {
			case "PublicKey":
				p.PublicKey, err = wgtypes.ParseKey(val)
				havePublic = err == nil
			case "PresharedKey":
				var k wgtypes.Key
				k, err = wgtypes.ParseKey(val)
				p.PresharedKey = &k
			case "Endpoint":
				_, err = netip.ParseAddrPort(val)
				if err != nil {
					// host:port with a DNS name is also valid.
					err = checkHostPort(val)
				}
				p.Endpoint = val
			case "AllowedIPs":
				p.AllowedIPs, err = parsePrefixes(val)
			case "PersistentKeepalive":
				p.PersistentKeepalive, err = strconv.Atoi(val)
			}
		default:
			return nil, fmt.Errorf("line %d: %s outside of a section", lineNo, key)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: parse %s: %w", lineNo, key, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	if !havePrivate {
		return nil, fmt.Errorf("missing PrivateKey in [Interface]")
	}
	if len(p.Addresses) == 0 {
		return nil, fmt.Errorf("missing Address in [Interface]")
	}
	if !havePublic {
		return nil, fmt.Errorf("missing PublicKey in [Peer]")
	}
	if p.Endpoint == "" {
		return nil, fmt.Errorf("missing Endpoint in [Peer]")
	}
	return p, nil
}

func splitList(val string) []string {
	var out []string
	for _, s := range strings.Split(val, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parsePrefixes(val string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, s := range splitList(val) {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, err
		}
		out = append(out, prefix)
	}
	return out, nil
}

func checkHostPort(val string) error {
	i := strings.LastIndex(val, ":")
	if i <= 0 {
		return fmt.Errorf("endpoint %q has no port", val)
	}
	port, err := strconv.Atoi(val[i+1:])
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("endpoint %q has invalid port", val)
	}
	return nil
}
