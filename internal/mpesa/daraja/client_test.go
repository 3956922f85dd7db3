package daraja

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPassword(t *testing.T) {
	at := time.Date(2024, 6, 15, 10, 30, 45, 0, time.UTC)

	password, timestamp := Password("174379", "passkey123", at)

	assert.Equal(t, "20240615103045", timestamp)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("174379passkey12320240615103045")), password)

	decoded, err := base64.StdEncoding.DecodeString(password)
	assert.NoError(t, err)
	assert.Equal(t, "174379passkey12320240615103045", string(decoded))
}
