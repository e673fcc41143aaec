package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerConfig_Dialer_NoTLSWhenCertsUnset(t *testing.T) {
	dialer, err := ConsumerConfig{}.dialer()
	require.NoError(t, err)
	assert.Nil(t, dialer.TLS)
}

func TestConsumerConfig_Dialer_OneCertFieldAloneSkipsTLS(t *testing.T) {
	dialer, err := ConsumerConfig{ClientCertPEM: "not a real cert"}.dialer()
	require.NoError(t, err)
	assert.Nil(t, dialer.TLS)
}

func TestConsumerConfig_Dialer_InvalidKeyPairErrors(t *testing.T) {
	_, err := ConsumerConfig{ClientCertPEM: "not a cert", ClientKeyPEM: "not a key"}.dialer()
	assert.Error(t, err)
}
