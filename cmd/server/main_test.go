package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/polychat/polychat-api/internal/config"
	"github.com/polychat/polychat-api/internal/domain"
	"github.com/polychat/polychat-api/internal/store"
)

func TestBuildStore(t *testing.T) {
	memCfg := &config.Configuration{Storage: config.StorageConfig{Backend: "memory"}}
	memStore, err := buildStore(memCfg)
	if err != nil {
		t.Fatalf("buildStore(memory) error = %v", err)
	}
	if _, ok := memStore.(*store.MemoryStore); !ok {
		t.Errorf("buildStore(memory) = %T, want *store.MemoryStore", memStore)
	}

	boltCfg := &config.Configuration{Storage: config.StorageConfig{
		Backend: "bolt",
		Path:    filepath.Join(t.TempDir(), "test.db"),
	}}
	boltStore, err := buildStore(boltCfg)
	if err != nil {
		t.Fatalf("buildStore(bolt) error = %v", err)
	}
	defer boltStore.Close()
	if _, ok := boltStore.(*store.BoltStore); !ok {
		t.Errorf("buildStore(bolt) = %T, want *store.BoltStore", boltStore)
	}
}

func TestBuildRegistry(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name      string
		providers config.ProvidersConfig
		want      []domain.ProviderType
	}{
		{
			name:      "all keys configured",
			providers: config.ProvidersConfig{OpenAIAPIKey: "a", GoogleAPIKey: "b", AnthropicAPIKey: "c", TimeoutSeconds: 60},
			want:      []domain.ProviderType{domain.ProviderOpenAI, domain.ProviderGoogle, domain.ProviderAnthropic},
		},
		{
			name:      "single key",
			providers: config.ProvidersConfig{GoogleAPIKey: "b", TimeoutSeconds: 60},
			want:      []domain.ProviderType{domain.ProviderGoogle},
		},
		{
			name:      "no keys",
			providers: config.ProvidersConfig{TimeoutSeconds: 60},
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Configuration{Providers: tt.providers}
			registry := buildRegistry(cfg, logger)

			got := registry.Providers()
			if len(got) != len(tt.want) {
				t.Fatalf("Providers() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Providers()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"short", "***"},
		{"sk-ant-api03-abcdefgh1234", "sk-ant-a...1234"},
	}

	for _, tt := range tests {
		if got := maskKey(tt.input); got != tt.expected {
			t.Errorf("maskKey(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
