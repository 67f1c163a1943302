package kernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kextkit/kextmanager/kext"
)

func TestFakeGatewayLoadedModules(t *testing.T) {
	g := NewFakeGateway()
	g.SetLoaded(kext.LoadedModule{Name: "com.example.one", Version: "1.0.0", Address: 0x1000})

	mods, err := g.LoadedModules(context.Background())
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "com.example.one", mods[0].Name)

	g.Unload("com.example.one")
	mods, err = g.LoadedModules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mods)
}

func TestFakeGatewayPublishAndRemovePersonalities(t *testing.T) {
	g := NewFakeGateway()
	err := g.PublishPersonalities(context.Background(), map[string]kext.Personality{
		"OSBundleModuleDemand": {"CFBundleIdentifier": "com.example.one"},
	})
	require.NoError(t, err)
	assert.Len(t, g.Catalog(), 1)

	err = g.RemovePersonalities(context.Background(), map[string]interface{}{"CFBundleIdentifier": "com.example.one"})
	require.NoError(t, err)
	assert.Empty(t, g.Catalog())
}
