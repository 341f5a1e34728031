package signer

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"
)

// GenerateSelfSigned crea una llave RSA 2048 y un certificado autofirmado con
// vigencia de un año. ruc va en el número de serie del sujeto, como en los
// certificados emitidos a contribuyentes.
func GenerateSelfSigned(commonName, ruc string) (*rsa.PrivateKey, *x509.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("generando llave RSA: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, nil, err
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: commonName, Country: []string{"PE"}, SerialNumber: ruc},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.AddDate(1, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("creando certificado: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, err
	}
	return key, cert, nil
}

// EphemeralMaterial material de firma autofirmado, sólo para modo simulado
// cuando no hay certificado configurado. SUNAT no lo aceptaría.
func EphemeralMaterial(commonName, ruc string) (*SigningMaterial, error) {
	key, cert, err := GenerateSelfSigned(commonName, ruc)
	if err != nil {
		return nil, err
	}
	return NewSigningMaterial(key, cert)
}
