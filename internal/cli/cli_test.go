package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdm-platform/feedhub/internal/auth"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNextRun_Daily(t *testing.T) {
	out, err := run(t, "next-run", "--frequency", "daily", "--hour", "9", "--from", "2024-03-04T08:00:00Z", "--count", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"2024-03-04T09:00:00Z", "2024-03-05T09:00:00Z"}, lines)
}

func TestNextRun_WeeklyInZone(t *testing.T) {
	// 2024-03-04 is a Monday; Sunday 10:00 Berlin is 09:00 UTC in winter time
	out, err := run(t, "next-run", "--frequency", "weekly", "--day-of-week", "0", "--hour", "10",
		"--from", "2024-03-04T08:00:00Z", "--timezone", "Europe/Berlin")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10T10:00:00+01:00", strings.TrimSpace(out))
}

func TestNextRun_OncePrintsSingleRun(t *testing.T) {
	out, err := run(t, "next-run", "--frequency", "once", "--from", "2024-03-04T08:00:00Z", "--count", "5")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04T08:00:10Z", strings.TrimSpace(out))
}

func TestNextRun_PastWindow(t *testing.T) {
	out, err := run(t, "next-run", "--frequency", "daily", "--from", "2024-03-04T08:00:00Z", "--end", "2024-03-04T07:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "no further runs", strings.TrimSpace(out))
}

func TestNextRun_RejectsBadRule(t *testing.T) {
	_, err := run(t, "next-run", "--frequency", "daily", "--hour", "25")
	assert.Error(t, err)

	_, err = run(t, "next-run", "--frequency", "fortnightly")
	assert.Error(t, err)
}

func TestToken_IssuesValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")
	t.Setenv("CONFIG_FILE", "")

	out, err := run(t, "token", "--subject", "ops@example.com", "--role", "Operator")
	require.NoError(t, err)

	signer, err := auth.NewTokenSigner([]byte("cli-test-secret"))
	require.NoError(t, err)
	claims, err := signer.Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.UserID())
	assert.Equal(t, "operator", claims.Role())
}

func TestToken_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CONFIG_FILE", "")

	_, err := run(t, "token", "--subject", "ops@example.com")
	assert.Error(t, err)
}

func TestReadCredentials(t *testing.T) {
	creds, err := readCredentials(`{"host":"sftp.example.com","port":2222}`, "")
	require.NoError(t, err)
	assert.Equal(t, "sftp.example.com", creds["host"])
	assert.EqualValues(t, 2222, creds["port"])

	path := filepath.Join(t.TempDir(), "creds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: ftp.example.com\nusername: feed\n"), 0o600))
	creds, err = readCredentials("", path)
	require.NoError(t, err)
	assert.Equal(t, "feed", creds["username"])

	_, err = readCredentials("", "")
	assert.Error(t, err)
	_, err = readCredentials("{}", path)
	assert.Error(t, err)
}

func TestTestConnection_InvalidCredentials(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	out, err := run(t, "test-connection", "--kind", "sftp", "--credentials", `{"host":"sftp.example.com"}`)
	assert.Error(t, err)
	assert.Contains(t, out, `"success": false`)
}
