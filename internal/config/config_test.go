package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GUEST_STORE", "File")
	t.Setenv("GUEST_STORE_DIR", "/tmp/carts")
	t.Setenv("MERGE_CONCURRENCY", "8")
	t.Setenv("SERVICE_KEY_HASH", " $2a$10$hash ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, GuestStoreFile, cfg.GuestStore.Backend)
	assert.Equal(t, "/tmp/carts", cfg.GuestStore.Dir)
	assert.Equal(t, 8, cfg.MergeConcurrency)
	assert.Equal(t, "$2a$10$hash", cfg.API.ServiceKeyHash)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("MERGE_CONCURRENCY", "many")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"postgres", Config{GuestStore: GuestStoreConfig{Backend: GuestStorePostgres}, MergeConcurrency: 1}, false},
		{"memory", Config{GuestStore: GuestStoreConfig{Backend: GuestStoreMemory}, MergeConcurrency: 4}, false},
		{"file without dir", Config{GuestStore: GuestStoreConfig{Backend: GuestStoreFile}, MergeConcurrency: 4}, true},
		{"unknown backend", Config{GuestStore: GuestStoreConfig{Backend: "redis"}, MergeConcurrency: 4}, true},
		{"zero concurrency", Config{GuestStore: GuestStoreConfig{Backend: GuestStoreMemory}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
