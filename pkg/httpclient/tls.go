// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
)

// TLSConfig adjusts certificate verification for outbound calls.
type TLSConfig struct {
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	CACertificate      string `yaml:"ca_certificate"` // PEM file replacing the system roots
}

// NewTransport clones http.DefaultTransport and applies cfg on top of a
// TLS 1.2 floor.
func NewTransport(cfg TLSConfig) (*http.Transport, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for test targets
	}
	if cfg.CACertificate != "" {
		pool, err := loadCertPool(cfg.CACertificate)
		if err != nil {
			return nil, err
		}
		tlsCfg.RootCAs = pool
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg
	return transport, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse CA certificate %s", path)
	}
	return pool, nil
}

// WithTLSConfig installs a transport built from cfg. Nil keeps the
// default transport.
func WithTLSConfig(cfg *TLSConfig) Option {
	return func(c *Client) error {
		if cfg == nil {
			return nil
		}
		transport, err := NewTransport(*cfg)
		if err != nil {
			return err
		}
		if c.client == nil {
			c.client = &http.Client{}
		}
		c.client.Transport = transport
		return nil
	}
}
