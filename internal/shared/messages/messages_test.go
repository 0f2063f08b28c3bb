package messages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	msgs, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), msgs)
	assert.Equal(t, "3 new transactions synced", msgs.SyncCompleteBody(3))
}

func TestLoad_OverridesKeepUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.json")
	content := `{"reconnect_required":{"title":"Reconecte","body":"Sua conexão expirou"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	msgs, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Reconecte", msgs.ReconnectRequired.Title)
	assert.Equal(t, Default().SyncComplete, msgs.SyncComplete)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}
