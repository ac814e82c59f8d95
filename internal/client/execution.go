package client

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
)

// loadRootCAs appends the given pem file to the system pool, falling
// back to an empty pool when the system pool can't be loaded
func loadRootCAs(caFile string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	bytes, err := os.ReadFile(caFile)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read ca file: %s", caFile)
	}
	if !pool.AppendCertsFromPEM(bytes) {
		return nil, errors.Errorf("no certificates found in ca file: %s", caFile)
	}
	return pool, nil
}

// newTransport builds the upstream transport; a ca file alone verifies
// upstream, a crt/key pair adds a client certificate
func newTransport(caFile, crtFile, keyFile string) (*http.Transport, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if caFile == "" && crtFile == "" && keyFile == "" {
		return transport, nil
	}
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile != "" {
		rootCAs, err := loadRootCAs(caFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = rootCAs
	}
	switch {
	case crtFile != "" && keyFile != "":
		certificate, err := tls.LoadX509KeyPair(crtFile, keyFile)
		if err != nil {
			return nil, errors.Wrap(err, "unable to load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{certificate}
	case crtFile != "" || keyFile != "":
		return nil, errors.New("both SSL_CRT_FILE and SSL_KEY_FILE are required for a client certificate")
	}
	transport.TLSClientConfig = tlsConfig
	return transport, nil
}
