// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/secureflow/secureflow/internal/config"
)

// TLSMode is the resolved transport security mode.
type TLSMode string

const (
	TLSModeOff        TLSMode = "off"
	TLSModeSelfSigned TLSMode = "selfsigned"
	TLSModeManual     TLSMode = "manual"
)

// selfSignedValidity is how long a generated certificate is good for.
// Certificates within renewBefore of expiry are replaced on startup.
const (
	selfSignedValidity = 365 * 24 * time.Hour
	renewBefore        = 30 * 24 * time.Hour
)

// TLSResult carries the mode decision and, for TLS modes, the config
// to serve with.
type TLSResult struct {
	TLSConfig *tls.Config
	Mode      TLSMode
}

// SetupTLS resolves the TLS mode and prepares certificates.
func SetupTLS(cfg *config.Config) (*TLSResult, error) {
	switch mode := resolveTLSMode(cfg); mode {
	case TLSModeOff:
		slog.Info("TLS mode: off")
		return &TLSResult{Mode: TLSModeOff}, nil
	case TLSModeSelfSigned:
		slog.Info("TLS mode: selfsigned")
		cert, err := loadOrCreateSelfSigned(cfg)
		if err != nil {
			return nil, err
		}
		return tlsResult(TLSModeSelfSigned, cert), nil
	case TLSModeManual:
		slog.Info("TLS mode: manual", "cert", cfg.TLS.CertFile, "key", cfg.TLS.KeyFile)
		cert, err := loadManualCert(cfg)
		if err != nil {
			return nil, err
		}
		return tlsResult(TLSModeManual, cert), nil
	default:
		return nil, fmt.Errorf("unknown TLS mode: %s", mode)
	}
}

// resolveTLSMode picks a mode: an explicit setting wins, localhost runs
// plain HTTP, provided cert files mean manual, anything else gets a
// self-signed certificate.
func resolveTLSMode(cfg *config.Config) TLSMode {
	switch mode := strings.ToLower(cfg.TLS.Mode); mode {
	case "off":
		return TLSModeOff
	case "selfsigned":
		return TLSModeSelfSigned
	case "manual":
		return TLSModeManual
	case "auto", "":
	default:
		slog.Warn("unknown TLS mode, using auto", "mode", mode)
	}

	if config.IsLocalhost(cfg.Server.Host) {
		return TLSModeOff
	}
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		return TLSModeManual
	}
	return TLSModeSelfSigned
}

func tlsResult(mode TLSMode, cert *tls.Certificate) *TLSResult {
	logFingerprint(cert)
	return &TLSResult{
		Mode: mode,
		TLSConfig: &tls.Config{
			Certificates: []tls.Certificate{*cert},
			MinVersion:   tls.VersionTLS12,
		},
	}
}

// loadOrCreateSelfSigned reuses a previously generated certificate when
// it is still valid long enough, otherwise generates a fresh one.
func loadOrCreateSelfSigned(cfg *config.Config) (*tls.Certificate, error) {
	dir := filepath.Join(cfg.TLS.CertDir, "selfsigned")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cert directory: %w", err)
	}
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")

	if cert, err := tls.LoadX509KeyPair(certFile, keyFile); err == nil {
		if expiresSoon(&cert) {
			slog.Info("self-signed certificate expiring soon, generating a new one")
		} else {
			slog.Info("reusing self-signed certificate", "cert", certFile)
			return &cert, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		slog.Warn("stored certificate unreadable, generating a new one", "error", err)
	}

	slog.Info("generating self-signed certificate", "host", cfg.Server.Host)
	return newSelfSignedCert(cfg.Server.Host, certFile, keyFile)
}

func loadManualCert(cfg *config.Config) (*tls.Certificate, error) {
	if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
		return nil, fmt.Errorf("manual TLS mode requires both cert-file and key-file")
	}

	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	return &cert, nil
}

// newSelfSignedCert generates an ECDSA P-256 certificate for the host
// plus localhost SANs and writes the PEM pair with owner-only permissions.
func newSelfSignedCert(host, certFile, keyFile string) (*tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	tpl := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"SecureFlow"},
			CommonName:   host,
		},
		NotBefore:             now,
		NotAfter:              now.Add(selfSignedValidity),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	if ip := net.ParseIP(host); ip != nil {
		tpl.IPAddresses = []net.IP{ip}
	} else {
		tpl.DNSNames = []string{host}
	}
	tpl.DNSNames = append(tpl.DNSNames, "localhost")
	tpl.IPAddresses = append(tpl.IPAddresses, net.ParseIP("127.0.0.1"), net.ParseIP("::1"))

	der, err := x509.CreateCertificate(rand.Reader, &tpl, &tpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write cert file: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load generated cert: %w", err)
	}
	return &cert, nil
}

func expiresSoon(cert *tls.Certificate) bool {
	if len(cert.Certificate) == 0 {
		return true
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return true
	}
	return time.Until(leaf.NotAfter) < renewBefore
}

// logFingerprint logs the certificate's SHA256 fingerprint so operators
// can pin or verify it from a browser warning.
func logFingerprint(cert *tls.Certificate) {
	if len(cert.Certificate) == 0 {
		return
	}
	sum := sha256.Sum256(cert.Certificate[0])
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	slog.Info("certificate fingerprint", "sha256", strings.Join(parts, ":"))
}
