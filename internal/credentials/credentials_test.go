package credentials

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("unit-test-secret")
	require.NoError(t, err)
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	ct, err := s.Encrypt(`{"password":"hunter2"}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ct, "v1:"))
	assert.NotContains(t, ct, "hunter2")

	assert.Equal(t, `{"password":"hunter2"}`, s.Decrypt(ct))
}

func TestStore_DecryptMalformedIsSoft(t *testing.T) {
	s := newTestStore(t)

	for _, input := range []string{"", "garbage", "v1:", "v1:!!!notbase64", "v1:AAAA"} {
		assert.Equal(t, Unreadable, s.Decrypt(input), "input %q", input)
	}

	_, err := s.Open("garbage")
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestStore_DecryptWithWrongKey(t *testing.T) {
	a := newTestStore(t)
	b, err := NewStore("another-secret")
	require.NoError(t, err)

	ct, err := a.Encrypt("plaintext")
	require.NoError(t, err)
	assert.Equal(t, Unreadable, b.Decrypt(ct))
}

func TestNewStore_HexKey(t *testing.T) {
	hexKey := strings.Repeat("ab", 32)
	s, err := NewStore(hexKey)
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), s.key[0])

	_, err = NewStore("   ")
	assert.Error(t, err)
}

func TestStore_SealUnseal(t *testing.T) {
	s := newTestStore(t)
	creds := map[string]any{"host": "sftp.example.com", "password": "pw"}

	ct, err := s.Seal(creds)
	require.NoError(t, err)

	back, err := s.Unseal(ct)
	require.NoError(t, err)
	assert.Equal(t, "sftp.example.com", back["host"])
	assert.Equal(t, "pw", back["password"])
}

func TestSanitize_MasksAtAnyDepth(t *testing.T) {
	creds := map[string]any{
		"host":     "h",
		"password": "top-secret",
		"nested": map[string]any{
			"apiKey": "k-123",
			"deeper": map[string]any{"passphrase": "pp", "keep": "visible"},
		},
		"list": []any{
			map[string]any{"accessToken": "tok", "secretKey": "sk"},
			"plain",
		},
		"privateKey": "-----BEGIN-----",
	}

	out := Sanitize(creds)
	encoded, err := json.Marshal(out)
	require.NoError(t, err)

	for _, secret := range []string{"top-secret", "k-123", "pp", "tok", "sk", "-----BEGIN-----"} {
		assert.NotContains(t, string(encoded), `"`+secret+`"`)
	}
	assert.Contains(t, string(encoded), "visible")
	assert.Equal(t, "h", out["host"])

	// the input is untouched
	assert.Equal(t, "top-secret", creds["password"])
	assert.Equal(t, "k-123", creds["nested"].(map[string]any)["apiKey"])
}

func TestSanitize_OnlyKnownKeys(t *testing.T) {
	out := Sanitize(map[string]any{"token": "t", "username": "u", "password": nil})
	assert.Equal(t, "t", out["token"])
	assert.Equal(t, "u", out["username"])
	assert.Nil(t, out["password"])
}

func TestResolve_Variants(t *testing.T) {
	c, err := Resolve(KindSFTP, map[string]any{"host": "h", "username": "u", "password": "p"})
	require.NoError(t, err)
	sftp := c.(*SFTPCredentials)
	assert.Equal(t, 22, sftp.Port)

	c, err = Resolve(KindAPI, map[string]any{"url": "https://api.example.com", "auth_type": "TOKEN", "token": "abc"})
	require.NoError(t, err)
	api := c.(*APICredentials)
	assert.Equal(t, "https://api.example.com", api.BaseURL)
	assert.Equal(t, AuthToken, api.AuthType)
	assert.Equal(t, "abc", api.AccessToken)

	c, err = Resolve(KindDatabase, map[string]any{"database": "feeds", "host": "db"})
	require.NoError(t, err)
	db := c.(*DatabaseCredentials)
	assert.Equal(t, "postgres", db.Driver)
	assert.Equal(t, 5432, db.Port)

	c, err = Resolve(KindFTP, map[string]any{"host": "ftp.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "anonymous", c.(*FTPCredentials).Username)

	c, err = Resolve(KindUpload, map[string]any{"directory": "/var/lib/feedhub/uploads/acme"})
	require.NoError(t, err)
	assert.Equal(t, KindUpload, c.Kind())
	assert.Equal(t, "/var/lib/feedhub/uploads/acme", c.(*UploadCredentials).Directory)
	assert.Empty(t, c.Path())
}

func TestResolve_Invalid(t *testing.T) {
	_, err := Resolve(KindSFTP, map[string]any{"host": "h", "username": "u"})
	assert.Error(t, err)

	_, err = Resolve(KindAPI, map[string]any{"baseUrl": "x", "authType": "kerberos"})
	assert.Error(t, err)

	_, err = Resolve(Kind("smb"), map[string]any{})
	assert.Error(t, err)

	_, err = Resolve(KindUpload, map[string]any{})
	assert.Error(t, err)

	_, err = ParseKind("SFTP")
	assert.NoError(t, err)
}
