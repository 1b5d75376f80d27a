package servicedetect

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExtractCert(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "example.test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"example.test", "www.example.test"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	info := ExtractCert(cert, 1)
	require.Contains(t, info.Subject, "example.test")
	require.Len(t, info.SANs, 2)
	require.Equal(t, 1, info.ChainLength)
}

func TestClientConfig_SetsSNI(t *testing.T) {
	t.Parallel()

	cfg := ClientConfig("target.example")
	require.Equal(t, "target.example", cfg.ServerName)
	require.True(t, cfg.InsecureSkipVerify)
}
