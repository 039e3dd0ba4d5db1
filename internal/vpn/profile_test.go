package vpn

import (
	"fmt"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

type testKeys struct {
	private wgtypes.Key
	peer    wgtypes.Key
	psk     wgtypes.Key
}

func newTestKeys(t *testing.T) testKeys {
	t.Helper()
	priv, err := wgtypes.GeneratePrivateKey()
	require.NoError(t, err)
	peer, err := wgtypes.GeneratePrivateKey()
	require.NoError(t, err)
	psk, err := wgtypes.GenerateKey()
	require.NoError(t, err)
	return testKeys{private: priv, peer: peer.PublicKey(), psk: psk}
}

func sampleProfile(k testKeys) string {
	return fmt.Sprintf(`# portal:environment=Test
[Interface]
PrivateKey = %s
Address = 10.20.0.7/32, fd00:20::7/128
DNS = 10.20.0.1

[Peer]
PublicKey = %s
PresharedKey = %s
Endpoint = vpn.test.example.com:51820
AllowedIPs = 10.20.0.0/16
PersistentKeepalive = 25
`, k.private, k.peer, k.psk)
}

func TestParseProfile(t *testing.T) {
	k := newTestKeys(t)

	p, err := ParseProfileString(sampleProfile(k))
	require.NoError(t, err)

	assert.Equal(t, "Test", p.Environment)
	assert.Equal(t, k.private, p.PrivateKey)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.20.0.7/32"),
		netip.MustParsePrefix("fd00:20::7/128"),
	}, p.Addresses)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("10.20.0.1")}, p.DNS)
	assert.Equal(t, k.peer, p.PublicKey)
	require.NotNil(t, p.PresharedKey)
	assert.Equal(t, k.psk, *p.PresharedKey)
	assert.Equal(t, "vpn.test.example.com:51820", p.Endpoint)
	assert.Equal(t, []netip.Prefix{netip.MustParsePrefix("10.20.0.0/16")}, p.AllowedIPs)
	assert.Equal(t, 25, p.PersistentKeepalive)
}

func TestParseProfile_NoMetadata(t *testing.T) {
	k := newTestKeys(t)
	profile := fmt.Sprintf("[Interface]\nPrivateKey = %s\nAddress = 10.0.0.2/32\n\n[Peer]\nPublicKey = %s\nEndpoint = 203.0.113.10:51820\n", k.private, k.peer)

	p, err := ParseProfileString(profile)
	require.NoError(t, err)
	assert.Empty(t, p.Environment)
	assert.Nil(t, p.PresharedKey)
}

func TestParseProfile_Errors(t *testing.T) {
	k := newTestKeys(t)

	tests := []struct {
		name    string
		profile string
		want    string
	}{
		{
			name:    "bad private key",
			profile: fmt.Sprintf("[Interface]\nPrivateKey = not-a-key\nAddress = 10.0.0.2/32\n[Peer]\nPublicKey = %s\nEndpoint = h:1\n", k.peer),
			want:    "parse PrivateKey",
		},
		{
			name:    "missing private key",
			profile: fmt.Sprintf("[Interface]\nAddress = 10.0.0.2/32\n[Peer]\nPublicKey = %s\nEndpoint = h:1\n", k.peer),
			want:    "missing PrivateKey",
		},
		{
			name:    "missing address",
			profile: fmt.Sprintf("[Interface]\nPrivateKey = %s\n[Peer]\nPublicKey = %s\nEndpoint = h:1\n", k.private, k.peer),
			want:    "missing Address",
		},
		{
			name:    "missing peer",
			profile: fmt.Sprintf("[Interface]\nPrivateKey = %s\nAddress = 10.0.0.2/32\n", k.private),
			want:    "missing PublicKey",
		},
		{
			name:    "bad address",
			profile: fmt.Sprintf("[Interface]\nPrivateKey = %s\nAddress = 10.0.0.300/32\n", k.private),
			want:    "parse Address",
		},
		{
			name:    "bad endpoint",
			profile: fmt.Sprintf("[Interface]\nPrivateKey = %s\nAddress = 10.0.0.2/32\n[Peer]\nPublicKey = %s\nEndpoint = vpn.example.com\n", k.private, k.peer),
			want:    "parse Endpoint",
		},
		{
			name:    "unknown section",
			profile: "[Tunnel]\nMTU = 1420\n",
			want:    "unknown section",
		},
		{
			name:    "key outside section",
			profile: "MTU = 1420\n",
			want:    "outside of a section",
		},
		{
			name:    "garbage line",
			profile: "[Interface]\nthis is not a profile\n",
			want:    "expected key = value",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfileString(tt.profile)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
