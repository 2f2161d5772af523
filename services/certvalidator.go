package services

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CertValidator verifies the x5c certificate chain embedded in the ACS
// signed content of an app-based challenge.
type CertValidator interface {
	ValidateAcsSignedContent(signedContent string) error
}

type acsCertValidator struct {
	roots *x509.CertPool
	now   func() time.Time
}

// NewAcsCertValidator builds a validator trusting the given PEM-encoded CA
// roots. When no roots are supplied the system pool is used.
func NewAcsCertValidator(rootPEMs ...[]byte) (CertValidator, error) {
	var roots *x509.CertPool
	if len(rootPEMs) > 0 {
		roots = x509.NewCertPool()
		for _, pem := range rootPEMs {
			if !roots.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no valid CA certificates in PEM block")
			}
		}
	} else {
		pool, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("loading system cert pool: %w", err)
		}
		roots = pool
	}
	return &acsCertValidator{roots: roots, now: time.Now}, nil
}

type jwsHeader struct {
	Alg string   `json:"alg"`
	X5c []string `json:"x5c"`
}

// ValidateAcsSignedContent parses the JWS header of the signed content and
// verifies the x5c chain against the trusted roots. The leaf is first, per
// RFC 7515.
func (v *acsCertValidator) ValidateAcsSignedContent(signedContent string) error {
	parts := strings.Split(signedContent, ".")
	if len(parts) != 3 {
		return fmt.Errorf("acs signed content is not a compact JWS")
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return fmt.Errorf("decoding JWS header: %w", err)
	}

	var header jwsHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return fmt.Errorf("parsing JWS header: %w", err)
	}
	if len(header.X5c) == 0 {
		return fmt.Errorf("JWS header carries no x5c chain")
	}

	certs := make([]*x509.Certificate, 0, len(header.X5c))
	for i, enc := range header.X5c {
		der, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return fmt.Errorf("decoding x5c[%d]: %w", i, err)
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return fmt.Errorf("parsing x5c[%d]: %w", i, err)
		}
		certs = append(certs, cert)
	}

	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}

	_, err = certs[0].Verify(x509.VerifyOptions{
		Roots:         v.roots,
		Intermediates: intermediates,
		CurrentTime:   v.now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return fmt.Errorf("acs certificate chain verification failed: %w", err)
	}
	return nil
}
