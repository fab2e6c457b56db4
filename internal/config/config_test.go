package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("EXT_SESSION_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EXT_SESSION_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "uvg.edu.gt", cfg.AllowedDomain)
	require.Equal(t, []string{"25837"}, cfg.AdminStudentIDs)
	require.Equal(t, 100000, cfg.HashIterations)
	require.Equal(t, 8*time.Hour, cfg.SessionTTL)
	require.Equal(t, 10*time.Second, cfg.OAuth.Timeout)
	require.False(t, cfg.OAuth.Enabled())
	require.True(t, cfg.OAuth.PublicClient())
	require.Equal(t, 10, cfg.LoginRateLimit)
	require.False(t, cfg.IsProduction())
}

func TestLoadOAuthSettings(t *testing.T) {
	t.Setenv("EXT_SESSION_SECRET", "secret")
	t.Setenv("EXT_OAUTH_CLIENT_ID", "client-123")
	t.Setenv("EXT_OAUTH_CLIENT_SECRET", "shh")
	t.Setenv("EXT_ADMIN_STUDENT_IDS", " 25837, 21001 ,,")
	t.Setenv("EXT_ALLOWED_DOMAIN", "UVG.EDU.GT")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.OAuth.Enabled())
	require.False(t, cfg.OAuth.PublicClient())
	require.Equal(t, []string{"25837", "21001"}, cfg.AdminStudentIDs)
	require.Equal(t, "uvg.edu.gt", cfg.AllowedDomain)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("EXT_SESSION_SECRET", "secret")
	t.Setenv("EXT_OAUTH_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
}
