package hearth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"log"
	"math/big"
	"net"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// TLS adds a TLS bind point with an already constructed certificate.
func (a *App) TLS(addr string, cert tls.Certificate) *App {
	return a.Listen(addr, func(network, addr string) (net.Listener, error) {
		return tls.Listen(network, addr, &tls.Config{
			Certificates: []tls.Certificate{cert},
		})
	})
}

// HTTPS adds a TLS bind point using the certificate and key files.
func (a *App) HTTPS(addr, certFile, keyFile string) *App {
	return a.Listen(addr, func(network, addr string) (net.Listener, error) {
		pair, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, err
		}

		return tls.Listen(network, addr, &tls.Config{
			Certificates: []tls.Certificate{pair},
		})
	})
}

// AutoHTTPS adds a TLS bind point with certificates obtained and renewed
// automatically via ACME. Certificates are cached in the certs directory.
// Without an explicit domain list any host is accepted, which is only suitable
// for local experiments.
func (a *App) AutoHTTPS(addr string, domains ...string) *App {
	return a.Listen(addr, func(network, addr string) (net.Listener, error) {
		manager := &autocert.Manager{
			Prompt: autocert.AcceptTOS,
			Cache:  autocert.DirCache("certs"),
		}
		if len(domains) > 0 {
			manager.HostPolicy = autocert.HostWhitelist(domains...)
		} else {
			log.Println("warning: AutoHTTPS without a domain list accepts any host")
		}

		sock, err := net.Listen(network, addr)
		if err != nil {
			return nil, err
		}

		return tls.NewListener(sock, manager.TLSConfig()), nil
	})
}

// LocalCert generates a throwaway self-signed certificate for localhost.
// Strictly for local experiments; clients will rightfully distrust it.
func LocalCert() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{Organization: []string{"hearth self-signed"}},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}, nil
}
