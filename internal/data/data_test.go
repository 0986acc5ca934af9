package data

import (
	"context"
	"testing"

	"github.com/lk2023060901/chat-gateway/internal/conf"
	"github.com/lk2023060901/chat-gateway/internal/media"
	"github.com/lk2023060901/chat-gateway/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewData_FSMemory(t *testing.T) {
	cfg := &conf.Config{}
	cfg.Cache.Backend = conf.BackendFS
	cfg.Cache.Index = conf.IndexMemory
	cfg.Cache.DataDir = t.TempDir()

	d, cleanup, err := NewData(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &media.FSStore{}, d.Store)
	assert.IsType(t, &media.MemoryIndex{}, d.Index)
	assert.Nil(t, d.MinIO)
	assert.Nil(t, d.Redis)
	assert.True(t, d.Probe())
}

func TestNewData_InvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		index   string
	}{
		{"unknown backend", "s3", conf.IndexMemory},
		{"unknown index", conf.BackendFS, "etcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &conf.Config{}
			cfg.Cache.Backend = tt.backend
			cfg.Cache.Index = tt.index
			cfg.Cache.DataDir = t.TempDir()

			d, cleanup, err := NewData(context.Background(), cfg, logger.Nop())
			assert.Error(t, err)
			assert.Nil(t, d)
			assert.Nil(t, cleanup)
		})
	}
}
