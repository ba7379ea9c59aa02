package jwt_test

import (
	"testing"

	"github.com/jhoicas/minimarket-api/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "clave-de-prueba"

func TestGenerateParse_RoundTrip(t *testing.T) {
	tok, err := jwt.Generate(secret, "u-1", "cajero", "minimarket-auth", 5)
	require.NoError(t, err)

	actor, err := jwt.Parse(secret, "minimarket-auth", tok)
	require.NoError(t, err)
	assert.Equal(t, jwt.Actor{UserID: "u-1", Role: "cajero"}, actor)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := jwt.Generate(secret, "u-1", "admin", "minimarket-auth", 5)
	require.NoError(t, err)

	_, err = jwt.Parse("otra-clave", "minimarket-auth", tok)
	assert.Error(t, err)
}

func TestParse_EmisorDistinto(t *testing.T) {
	tok, err := jwt.Generate(secret, "u-1", "admin", "otro", 5)
	require.NoError(t, err)

	_, err = jwt.Parse(secret, "minimarket-auth", tok)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := jwt.Generate(secret, "u-1", "admin", "minimarket-auth", -1)
	require.NoError(t, err)

	_, err = jwt.Parse(secret, "minimarket-auth", tok)
	assert.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := jwt.Generate("", "u-1", "admin", "x", 5)
	assert.Error(t, err)
}
