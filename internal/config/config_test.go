package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenPathEmpty(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, 30*time.Minute, cfg.TResp())
	require.Equal(t, time.Minute, cfg.WorkerTick())
	require.Equal(t, 10, cfg.QuotaD())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dispatchd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr = ":9090"
t_resp_minutes = 45
quota_a_pct = 50
quota_b_pct = 30
quota_c_pct = 10
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr)
	require.Equal(t, 45*time.Minute, cfg.TResp())
	require.Equal(t, 10, cfg.QuotaD())
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, Default().HTTPAddr, cfg.HTTPAddr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dispatchd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr = ":9090"
t_resp_minutes = 45
`), 0o644))
	t.Setenv("DISPATCHD_HTTP_ADDR", ":7070")
	t.Setenv("DISPATCHD_T_RESP_MINUTES", "15")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.HTTPAddr)
	require.Equal(t, 15*time.Minute, cfg.TResp())
}

func TestLoad_RejectsQuotasOverOneHundred(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
quota_a_pct = 60
quota_b_pct = 30
quota_c_pct = 20
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
