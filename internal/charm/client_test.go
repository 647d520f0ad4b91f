// ABOUTME: Tests for charm key layout helpers
// ABOUTME: The KV itself needs a charm account, so only pure helpers are covered
package charm

import (
	"testing"

	"github.com/harper/datachat/internal/storage"
)

var _ storage.Backend = (*Client)(nil)

func TestNamespacePrefix(t *testing.T) {
	if got := NamespacePrefix("report.pdf"); got != "embedding:report.pdf:" {
		t.Errorf("NamespacePrefix() = %q", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("CHARM_HOST", "charm.example.com")
	cfg := DefaultConfig()
	if cfg.Host != "charm.example.com" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.DBName != "datachat" {
		t.Errorf("DBName = %q", cfg.DBName)
	}
}
