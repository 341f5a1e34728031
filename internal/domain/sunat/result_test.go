package sunat_test

import (
	"errors"
	"testing"

	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
	"github.com/jhoicas/sunat-cpe/internal/domain/sunat"
	"github.com/stretchr/testify/assert"
)

func TestTransmissionResult_Err(t *testing.T) {
	assert.NoError(t, sunat.Accepted("0", "ok", nil, nil).Err())

	rej := sunat.Rejected("soap:Client", "Invalid credentials").Err()
	assert.ErrorIs(t, rej, sunat.ErrRejected)
	assert.Contains(t, rej.Error(), "Invalid credentials")
	assert.False(t, sunat.IsTransient(rej))

	tr := sunat.TransportFailure(sunat.Timeout, "deadline").Err()
	var te *sunat.TransportError
	assert.True(t, errors.As(tr, &te))
	assert.Equal(t, sunat.Timeout, te.Kind)
	assert.True(t, sunat.IsTransient(tr))
}

func TestIsRejectionCode(t *testing.T) {
	cases := map[string]bool{"0": false, "2017": true, "3999": true, "4000": false, "4252": false, "x": false}
	for code, want := range cases {
		assert.Equal(t, want, sunat.IsRejectionCode(code), code)
	}
}

func TestTransmissionResult_InvoiceStatus(t *testing.T) {
	assert.Equal(t, entity.StatusAccepted, sunat.Accepted("0", "ok", nil, nil).InvoiceStatus())
	assert.Equal(t, entity.StatusRejected, sunat.Rejected("2800", "x").InvoiceStatus())
	assert.Equal(t, entity.StatusPending, sunat.TransportFailure(sunat.Timeout, "x").InvoiceStatus())

	assert.Equal(t, "0", sunat.Accepted("0", "ok", nil, nil).Code())
	assert.Equal(t, "soap:Client", sunat.Rejected("soap:Client", "x").Code())
	assert.Equal(t, "Timeout", sunat.TransportFailure(sunat.Timeout, "x").Code())
}
