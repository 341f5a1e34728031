package sunat_test

import (
	"testing"

	"github.com/jhoicas/sunat-cpe/pkg/sunat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRUC_Validos(t *testing.T) {
	for _, ruc := range []string{"20000000001", "20123456786", sunat.BetaRUC} {
		assert.NoError(t, sunat.ValidateRUC(ruc), ruc)
	}
}

func TestValidateRUC_Invalidos(t *testing.T) {
	cases := map[string]string{
		"corto":            "2012345678",
		"letras":           "20A23456786",
		"prefijo":          "30123456786",
		"digitoIncorrecto": "20123456789",
	}
	for name, ruc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, sunat.ValidateRUC(ruc))
		})
	}
}

func TestComputeRUCCheckDigit(t *testing.T) {
	dv, err := sunat.ComputeRUCCheckDigit("2012345678")
	require.NoError(t, err)
	assert.Equal(t, byte('6'), dv)

	_, err = sunat.ComputeRUCCheckDigit("123")
	assert.Error(t, err)
}

func TestValidateIdentity(t *testing.T) {
	assert.NoError(t, sunat.ValidateIdentity(sunat.IdentityTypeDNI, "45678912"))
	assert.Error(t, sunat.ValidateIdentity(sunat.IdentityTypeDNI, "4567891"))
	assert.NoError(t, sunat.ValidateIdentity(sunat.IdentityTypeRUC, "20000000001"))
	assert.NoError(t, sunat.ValidateIdentity(sunat.IdentityTypePassport, "AB123"))
	assert.Error(t, sunat.ValidateIdentity(sunat.IdentityTypePassport, ""))
}
