package email

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/polistern/pboted/internal/identity"
)

// EncodeLocalIdentity serializes li into a one-line text form suitable
// for the node's identities file: a name, then the v1 public address,
// then the private key halves, all base64, separated by whitespace.
// Follows the same "self-describing blob, base64 text line" shape as
// dht.Table's nodes.txt (internal/dht/table.go's SaveNodesFile).
func EncodeLocalIdentity(li LocalIdentity) string {
	addr := identity.EncodeAddressV1(li.Identity, false)
	cryptoPriv := base64.StdEncoding.EncodeToString(li.CryptoPriv)
	signingPriv := base64.StdEncoding.EncodeToString(li.SigningPriv)
	name := li.Name
	if name == "" {
		name = "-"
	}
	return strings.Join([]string{name, addr, cryptoPriv, signingPriv}, " ")
}

// DecodeLocalIdentity parses a line produced by EncodeLocalIdentity.
func DecodeLocalIdentity(line string) (LocalIdentity, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return LocalIdentity{}, fmt.Errorf("email: identity line: expected 4 fields, got %d", len(fields))
	}
	name := fields[0]
	if name == "-" {
		name = ""
	}
	id, err := identity.ParseAddress(fields[1])
	if err != nil {
		return LocalIdentity{}, fmt.Errorf("email: identity line: address: %w", err)
	}
	cryptoPriv, err := base64.StdEncoding.DecodeString(fields[2])
	if err != nil {
		return LocalIdentity{}, fmt.Errorf("email: identity line: crypto key: %w", err)
	}
	signingPriv, err := base64.StdEncoding.DecodeString(fields[3])
	if err != nil {
		return LocalIdentity{}, fmt.Errorf("email: identity line: signing key: %w", err)
	}
	return LocalIdentity{Name: name, Identity: id, CryptoPriv: cryptoPriv, SigningPriv: signingPriv}, nil
}

// LoadIdentities reads every non-blank, non-comment line of path as a
// LocalIdentity. A missing file yields zero identities rather than an
// error, matching dht.Table.LoadNodesFile's tolerance of a fresh node
// with no persisted state yet.
func LoadIdentities(path string) ([]LocalIdentity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("email: read identities file: %w", err)
	}
	var out []LocalIdentity
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		li, err := DecodeLocalIdentity(line)
		if err != nil {
			return nil, err
		}
		out = append(out, li)
	}
	return out, nil
}

// SaveIdentities writes identities to path, one per line, creating
// parent directories as needed. Follows dht.Table.SaveNodesFile's
// write-to-tempfile-then-rename idiom for crash safety.
func SaveIdentities(path string, identities []LocalIdentity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("email: identities dir: %w", err)
	}
	var b strings.Builder
	b.WriteString("# pboted local identities\n")
	for _, li := range identities {
		b.WriteString(EncodeLocalIdentity(li))
		b.WriteByte('\n')
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("email: write identities file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("email: rename identities file: %w", err)
	}
	return nil
}
