// Package signertest genera material de firma efímero para pruebas:
// llave RSA, certificado autofirmado y contenedores PKCS#12.
package signertest

import (
	"crypto/rsa"
	"crypto/x509"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat/signer"
	"github.com/stretchr/testify/require"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

var (
	once    sync.Once
	keyPair struct {
		key  *rsa.PrivateKey
		cert *x509.Certificate
		err  error
	}
)

// KeyPair devuelve una llave RSA 2048 y su certificado autofirmado, generados una vez por proceso.
func KeyPair(t testing.TB) (*rsa.PrivateKey, *x509.Certificate) {
	t.Helper()
	once.Do(func() {
		keyPair.key, keyPair.cert, keyPair.err = generate("EMPRESA DEMO S.A.C.")
	})
	require.NoError(t, keyPair.err)
	return keyPair.key, keyPair.cert
}

// NewKeyPair genera un par nuevo (para pruebas que necesitan otro firmante).
func NewKeyPair(t testing.TB, commonName string) (*rsa.PrivateKey, *x509.Certificate) {
	t.Helper()
	key, cert, err := generate(commonName)
	require.NoError(t, err)
	return key, cert
}

// Material devuelve el SigningMaterial del par compartido.
func Material(t testing.TB) *signer.SigningMaterial {
	t.Helper()
	key, cert := KeyPair(t)
	m, err := signer.NewSigningMaterial(key, cert)
	require.NoError(t, err)
	return m
}

// WriteP12 escribe el par compartido como .pfx en dir. modern=true usa PBES2/AES.
func WriteP12(t testing.TB, dir, password string, modern bool) string {
	t.Helper()
	key, cert := KeyPair(t)
	enc := gopkcs12.LegacyDES
	name := "legacy.pfx"
	if modern {
		enc = gopkcs12.Modern2023
		name = "modern.pfx"
	}
	data, err := enc.Encode(key, cert, nil, password)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func generate(commonName string) (*rsa.PrivateKey, *x509.Certificate, error) {
	return signer.GenerateSelfSigned(commonName, "20123456786")
}
