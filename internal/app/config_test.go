package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader() aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "SHOP",
		SkipFlags: true,
		SkipFiles: true,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.True(t, cfg.Seed)
	assert.Equal(t, "Laptop Galleria", cfg.Shop.Name)
	assert.Equal(t, "₱", cfg.Shop.Currency)
	assert.Equal(t, "m.me", cfg.Messenger.Host)
	assert.Equal(t, 600, cfg.Image.Width)
	assert.Equal(t, 400, cfg.Image.Height)
	assert.Equal(t, int64(4<<20), cfg.Image.MaxUploadBytes)
	assert.Equal(t, StorageLocal, cfg.Storage.Driver)
	assert.Equal(t, "uploads", cfg.Storage.Dir)
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, 5, cfg.LoginRateLimit.Max)
	assert.Equal(t, time.Minute, cfg.LoginRateLimit.Window)
	assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SHOP_ADMIN_PASSWORD", "hunter2")
	t.Setenv("SHOP_SEED", "false")
	t.Setenv("SHOP_MESSENGER_PAGE_ID", "galleria")
	t.Setenv("SHOP_STORAGE_DRIVER", "s3")
	t.Setenv("SHOP_STORAGE_S3_BUCKET", "images")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, "hunter2", cfg.AdminPassword)
	assert.False(t, cfg.Seed)
	assert.Equal(t, "galleria", cfg.Messenger.PageID)
	assert.Equal(t, StorageS3, cfg.Storage.Driver)
	assert.Equal(t, "images", cfg.Storage.S3.Bucket)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/shop")
	t.Setenv("PORT", "3000")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/shop", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		err  string
	}{
		{
			name: "unknown driver",
			env:  map[string]string{"SHOP_STORAGE_DRIVER": "ftp"},
			err:  `unknown storage driver "ftp"`,
		},
		{
			name: "s3 without bucket",
			env:  map[string]string{"SHOP_STORAGE_DRIVER": "s3"},
			err:  "storage bucket is required",
		},
		{
			name: "zero image size",
			env:  map[string]string{"SHOP_IMAGE_WIDTH": "0"},
			err:  "invalid image size",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(testLoader())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}
