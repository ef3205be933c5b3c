// Package outputs is a file system backed output provider. It stands in for
// the host build tool's output system when classweave runs on its own.
package outputs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/classweave/internal/artifact"
)

// Provider resolves output locations under a single root. Locations are
// derived from the artifact identity alone, so the same identity resolves to
// the same path on every run and distinct identities never collide.
type Provider struct {
	root string
}

// New returns a provider rooted at root.
func New(root string) *Provider {
	return &Provider{root: filepath.Clean(root)}
}

func (p *Provider) Root() string { return p.root }

// ContentLocation returns <root>/<base>-<hash>[.jar] for an identity.
func (p *Provider) ContentLocation(name string, contentTypes []artifact.ContentType, scopes []artifact.Scope, format artifact.Format) (string, error) {
	if name == "" {
		return "", fmt.Errorf("resolve output: empty artifact name")
	}
	base := sanitize(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	id := base + "-" + identityHash(name, contentTypes, scopes, format)
	if format == artifact.FormatArchive {
		ext := filepath.Ext(name)
		if ext == "" {
			ext = ".jar"
		}
		id += ext
	}
	return filepath.Join(p.root, id), nil
}

// DeleteAll removes every output under the root and recreates the root.
func (p *Provider) DeleteAll() error {
	if err := os.RemoveAll(p.root); err != nil {
		return fmt.Errorf("delete outputs under %s: %w", p.root, err)
	}
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return fmt.Errorf("recreate output root %s: %w", p.root, err)
	}
	return nil
}

func identityHash(name string, contentTypes []artifact.ContentType, scopes []artifact.Scope, format artifact.Format) string {
	types := make([]string, len(contentTypes))
	for i, ct := range contentTypes {
		types[i] = string(ct)
	}
	sort.Strings(types)
	sc := make([]string, len(scopes))
	for i, s := range scopes {
		sc[i] = string(s)
	}
	sort.Strings(sc)

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s", name, strings.Join(types, ","), strings.Join(sc, ","), format)
	return hex.EncodeToString(h.Sum(nil))[:12]
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "artifact"
	}
	return b.String()
}
