package scanner

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"time"
)

// TLSInfo is the outcome of a direct TLS handshake.
type TLSInfo struct {
	Enabled          bool   `json:"enabled"`
	CertificateValid bool   `json:"certificate_valid"`
	Version          string `json:"version,omitempty"`
	CipherSuite      string `json:"cipher_suite,omitempty"`
	Issuer           string `json:"issuer,omitempty"`
	Subject          string `json:"subject,omitempty"`
	ExpiresAt        string `json:"expires_at,omitempty"`
	DaysToExpiry     *int   `json:"days_to_expiry,omitempty"`
	Error            string `json:"error,omitempty"`
	Score            int    `json:"score"`
}

// TLSProber performs a TLS handshake without any HTTP layer.
type TLSProber struct {
	dialer  *net.Dialer
	config  *tls.Config
	timeout time.Duration
	now     func() time.Time
}

// NewTLSProber returns a prober dialing through dialer. base may carry
// RootCAs; ServerName is set per probe.
func NewTLSProber(dialer *net.Dialer, base *tls.Config, timeout time.Duration) *TLSProber {
	if base == nil {
		base = &tls.Config{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TLSProber{dialer: dialer, config: base, timeout: timeout, now: time.Now}
}

// Probe inspects the certificate served for rawURL. Non-https URLs score 0
// without any network traffic.
func (p *TLSProber) Probe(ctx context.Context, rawURL string) TLSInfo {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" {
		return TLSInfo{}
	}

	port := u.Port()
	if port == "" {
		port = "443"
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cfg := p.config.Clone()
	cfg.ServerName = u.Hostname()
	d := &tls.Dialer{NetDialer: p.dialer, Config: cfg}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		return TLSInfo{Error: err.Error()}
	}
	defer func() { _ = conn.Close() }()

	state := conn.(*tls.Conn).ConnectionState()
	info := TLSInfo{
		Enabled:          true,
		CertificateValid: true,
		Version:          tls.VersionName(state.Version),
		CipherSuite:      tls.CipherSuiteName(state.CipherSuite),
	}
	if len(state.PeerCertificates) > 0 {
		cert := state.PeerCertificates[0]
		days := int(math.Floor(cert.NotAfter.Sub(p.now()).Hours() / 24))
		info.DaysToExpiry = &days
		info.Issuer = cert.Issuer.String()
		info.Subject = cert.Subject.String()
		info.ExpiresAt = cert.NotAfter.UTC().Format(time.RFC3339)
	}
	info.Score = tlsScore(info)
	return info
}

// tlsScore maps days to expiry onto the score tiers.
func tlsScore(info TLSInfo) int {
	if !info.Enabled || info.DaysToExpiry == nil {
		return 0
	}
	switch days := *info.DaysToExpiry; {
	case days > 30:
		return 100
	case days > 7:
		return 80
	case days > 0:
		return 60
	default:
		return 0
	}
}
