package cli

import (
	"testing"

	"talehub/internal/blob"
	"talehub/internal/config"
)

func TestNewUploader_LocalDir(t *testing.T) {
	cfg := config.Default()
	cfg.Server.UploadDir = t.TempDir()
	cfg.Server.PublicURL = "http://example.com/"

	up, err := newUploader(&cfg)
	if err != nil {
		t.Fatalf("newUploader() error = %v", err)
	}
	dir, ok := up.(*blob.DirUploader)
	if !ok {
		t.Fatalf("newUploader() = %T, want *blob.DirUploader", up)
	}
	if dir.Dir() != cfg.Server.UploadDir {
		t.Errorf("Dir() = %q, want %q", dir.Dir(), cfg.Server.UploadDir)
	}
}

func TestInit_RegistersCommands(t *testing.T) {
	Init("1.2.3")
	for _, name := range []string{"serve", "migrate", "secret"} {
		if cmd, _, err := rootCmd.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
	if rootCmd.Version != "1.2.3" {
		t.Errorf("Version = %q, want 1.2.3", rootCmd.Version)
	}
}
