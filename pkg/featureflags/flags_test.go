package featureflags

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompression_DisabledByDefault(t *testing.T) {
	manager := NewEnvManager("TEST_FEATURE_")
	ctx := context.Background()

	assert.False(t, manager.IsEnabled(ctx, CacheStorageCompression))
}

func TestCompression_EnabledWhenFlagSet(t *testing.T) {
	t.Setenv("TEST_FEATURE_CACHE_STORAGE_COMPRESSION", "true")

	manager := NewEnvManager("TEST_FEATURE_")
	ctx := context.Background()

	assert.True(t, manager.IsEnabled(ctx, CacheStorageCompression))
}

func TestNewEnvManager_DefaultPrefix(t *testing.T) {
	t.Setenv("FEATURE_NO_REMOTE_RESOURCES", "1")

	manager := NewEnvManager("")
	assert.True(t, manager.IsEnabled(context.Background(), NoRemoteResources))
}

func TestEnvManager_MultipleValues(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{"true lowercase", "true", true},
		{"TRUE uppercase", "TRUE", true},
		{"1 numeric", "1", true},
		{"enabled", "enabled", true},
		{"ENABLED", "ENABLED", true},
		{"false", "false", false},
		{"0", "0", false},
		{"empty", "", false},
		{"other", "yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_FLAG", tt.value)

			manager := NewEnvManager("TEST_")
			ctx := context.Background()

			assert.Equal(t, tt.expected, manager.IsEnabled(ctx, "FLAG"))
		})
	}
}

func TestEnvManager_OverrideTakesPrecedence(t *testing.T) {
	t.Setenv("TEST_FEATURE_AUTO_UPDATE", "true")

	manager := NewEnvManager("TEST_FEATURE_")
	ctx := context.Background()

	assert.True(t, manager.IsEnabled(ctx, AutoUpdate))

	manager.SetEnabled(AutoUpdate, false)
	assert.False(t, manager.IsEnabled(ctx, AutoUpdate))
}

func TestEnvManager_GetAllFlags(t *testing.T) {
	t.Setenv("TEST_FEATURE_AUTO_UPDATE", "enabled")

	manager := NewEnvManager("TEST_FEATURE_")
	manager.SetEnabled(NoRemoteResources, true)

	assert.Equal(t, map[FeatureFlag]bool{
		CacheStorageCompression: false,
		NoRemoteResources:       true,
		AutoUpdate:              true,
	}, manager.GetAllFlags())
}

func TestStaticManager(t *testing.T) {
	manager := NewStaticManager(map[FeatureFlag]bool{
		CacheStorageCompression: true,
		NoRemoteResources:       false,
	})
	ctx := context.Background()

	assert.True(t, manager.IsEnabled(ctx, CacheStorageCompression))
	assert.False(t, manager.IsEnabled(ctx, NoRemoteResources))
	assert.False(t, manager.IsEnabled(ctx, AutoUpdate)) // Not in initial map

	manager.SetEnabled(AutoUpdate, true)
	assert.True(t, manager.IsEnabled(ctx, AutoUpdate))
}

func TestStaticManager_GetAllFlagsIsACopy(t *testing.T) {
	manager := NewStaticManager(map[FeatureFlag]bool{AutoUpdate: true})

	all := manager.GetAllFlags()
	all[AutoUpdate] = false

	assert.True(t, manager.IsEnabled(context.Background(), AutoUpdate))
}

func TestContextIntegration(t *testing.T) {
	manager := NewStaticManager(map[FeatureFlag]bool{
		CacheStorageCompression: true,
	})

	ctx := WithManager(context.Background(), manager)

	assert.True(t, IsEnabled(ctx, CacheStorageCompression))
	assert.False(t, IsEnabled(ctx, NoRemoteResources))
}

func TestFromContext_DefaultManager(t *testing.T) {
	ctx := context.Background()

	assert.False(t, IsEnabled(ctx, CacheStorageCompression))
	assert.False(t, IsEnabled(ctx, AutoUpdate))
}

func TestConcurrentAccess(t *testing.T) {
	manager := NewStaticManager(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				manager.SetEnabled(AutoUpdate, j%2 == 0)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = manager.IsEnabled(ctx, AutoUpdate)
			}
		}()
	}
	wg.Wait()
}
