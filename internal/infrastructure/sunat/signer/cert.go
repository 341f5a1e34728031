// Carga del certificado digital desde .pfx/.p12 (PKCS#12) o par PEM.

package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/pkcs12"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// SigningMaterial llave privada RSA y certificado X.509 del emisor.
// Se carga una vez al arranque y se comparte en sólo lectura; la llave nunca sale del paquete.
type SigningMaterial struct {
	key  *rsa.PrivateKey
	cert *x509.Certificate
}

// LoadSigningMaterial carga un archivo .pfx/.p12. Si el contenedor trae varias
// llaves o certificados se usa el primero de cada tipo.
func LoadSigningMaterial(path, password string) (*SigningMaterial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		kind := domsunat.CertMalformed
		if errors.Is(err, fs.ErrNotExist) {
			kind = domsunat.CertNotFound
		}
		return nil, &domsunat.CertificateError{Kind: kind, Path: path, Err: err}
	}
	m, err := DecodeSigningMaterial(data, password)
	if err != nil {
		var ce *domsunat.CertificateError
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return nil, err
	}
	return m, nil
}

// DecodeSigningMaterial decodifica el contenido de un PKCS#12. Primero intenta
// golang.org/x/crypto/pkcs12; los contenedores con PBES2/AES (OpenSSL 3, Windows
// recientes) no están soportados ahí y se decodifican con go-pkcs12.
func DecodeSigningMaterial(data []byte, password string) (*SigningMaterial, error) {
	key, cert, err := decodeLegacy(data, password)
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return nil, &domsunat.CertificateError{Kind: domsunat.CertBadPassword, Err: err}
	}
	if err != nil {
		k, c, _, modernErr := gopkcs12.DecodeChain(data, password)
		switch {
		case errors.Is(modernErr, gopkcs12.ErrIncorrectPassword):
			return nil, &domsunat.CertificateError{Kind: domsunat.CertBadPassword, Err: modernErr}
		case modernErr != nil:
			return nil, &domsunat.CertificateError{Kind: domsunat.CertMalformed, Err: errors.Join(err, modernErr)}
		}
		key, cert = k, c
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, &domsunat.CertificateError{Kind: domsunat.CertMalformed, Err: fmt.Errorf("llave %T: se requiere RSA", key)}
	}
	return NewSigningMaterial(rsaKey, cert)
}

// decodeLegacy toma el primer bloque de llave y el primer certificado de ToPEM.
func decodeLegacy(data []byte, password string) (any, *x509.Certificate, error) {
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, nil, err
	}
	var key any
	var cert *x509.Certificate
	for _, b := range blocks {
		switch b.Type {
		case "PRIVATE KEY":
			if key != nil {
				continue
			}
			// ToPEM entrega PKCS#1 para RSA aunque el tipo diga "PRIVATE KEY".
			if k, err := x509.ParsePKCS1PrivateKey(b.Bytes); err == nil {
				key = k
			} else if k, err := x509.ParsePKCS8PrivateKey(b.Bytes); err == nil {
				key = k
			} else if k, err := x509.ParseECPrivateKey(b.Bytes); err == nil {
				key = k
			} else {
				return nil, nil, fmt.Errorf("parsear llave: %w", err)
			}
		case "CERTIFICATE":
			if cert != nil {
				continue
			}
			c, err := x509.ParseCertificate(b.Bytes)
			if err != nil {
				return nil, nil, fmt.Errorf("parsear certificado: %w", err)
			}
			cert = c
		}
	}
	if key == nil || cert == nil {
		return nil, nil, errors.New("pkcs12 sin llave privada o sin certificado")
	}
	return key, cert, nil
}

// LoadFromPEM carga certificado y llave desde archivos PEM (separados o combinados).
func LoadFromPEM(certPath, keyPath string) (*SigningMaterial, error) {
	if keyPath == "" {
		keyPath = certPath
	}
	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		kind := domsunat.CertMalformed
		if errors.Is(err, fs.ErrNotExist) {
			kind = domsunat.CertNotFound
		}
		return nil, &domsunat.CertificateError{Kind: kind, Path: certPath, Err: err}
	}
	rsaKey, ok := pair.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, &domsunat.CertificateError{Kind: domsunat.CertMalformed, Path: keyPath, Err: errors.New("se requiere llave RSA")}
	}
	cert, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		return nil, &domsunat.CertificateError{Kind: domsunat.CertMalformed, Path: certPath, Err: err}
	}
	return NewSigningMaterial(rsaKey, cert)
}

// NewSigningMaterial valida que la llave corresponda al certificado.
func NewSigningMaterial(key *rsa.PrivateKey, cert *x509.Certificate) (*SigningMaterial, error) {
	if key == nil || cert == nil {
		return nil, &domsunat.CertificateError{Kind: domsunat.CertMalformed, Err: errors.New("llave o certificado ausente")}
	}
	if !key.PublicKey.Equal(cert.PublicKey) {
		return nil, &domsunat.CertificateError{Kind: domsunat.CertMalformed, Err: errors.New("la llave privada no corresponde al certificado")}
	}
	return &SigningMaterial{key: key, cert: cert}, nil
}

// Sign firma data con RSA-SHA256 (PKCS#1 v1.5).
func (m *SigningMaterial) Sign(data []byte) ([]byte, error) {
	h := sha256.Sum256(data)
	return rsa.SignPKCS1v15(rand.Reader, m.key, crypto.SHA256, h[:])
}

// PublicCertificateDER copia del certificado en DER.
func (m *SigningMaterial) PublicCertificateDER() []byte {
	return append([]byte(nil), m.cert.Raw...)
}

// Certificate certificado parseado (sólo lectura).
func (m *SigningMaterial) Certificate() *x509.Certificate { return m.cert }

// CertificateBase64 certificado en Base64 sin cabeceras PEM, para ds:X509Certificate.
func (m *SigningMaterial) CertificateBase64() string {
	return base64.StdEncoding.EncodeToString(m.cert.Raw)
}

// CertificatePEM certificado en PEM.
func (m *SigningMaterial) CertificatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: m.cert.Raw})
}

// NotAfter fin de vigencia del certificado.
func (m *SigningMaterial) NotAfter() time.Time { return m.cert.NotAfter }

// TLSConfig identidad de cliente para TLS mutuo con el servicio.
func (m *SigningMaterial) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{m.cert.Raw},
			PrivateKey:  m.key,
			Leaf:        m.cert,
		}},
	}
}

func (m *SigningMaterial) String() string {
	return fmt.Sprintf("certificado{sujeto=%q serie=%s vence=%s}",
		m.cert.Subject.String(), m.cert.SerialNumber.Text(16), m.cert.NotAfter.Format(time.DateOnly))
}

// MarshalZerologObject registra sólo datos públicos del certificado.
func (m *SigningMaterial) MarshalZerologObject(e *zerolog.Event) {
	e.Str("subject", m.cert.Subject.String()).
		Str("serial", m.cert.SerialNumber.Text(16)).
		Time("not_before", m.cert.NotBefore).
		Time("not_after", m.cert.NotAfter)
}
