package email

import (
	"fmt"
	"strings"
)

// AddressBook is the address-book collaborator spec.md §1 and §6 name as
// an out-of-scope external boundary: alias→identity-string lookup for
// rewriting composed mail headers. The core only needs Resolve; how
// aliases are stored (config file, contacts DHT class, …) is the
// caller's concern.
type AddressBook interface {
	// Resolve looks up alias (the bare name half of an "alias
	// <name@domain>"-style header, case-insensitive) and returns its
	// full Bote address string, or ok=false if unknown.
	Resolve(alias string) (address string, ok bool)
}

// StaticAddressBook is a fixed, in-memory AddressBook, the concrete
// default used until a persistent contacts store exists.
type StaticAddressBook struct {
	byAlias map[string]string
}

// NewStaticAddressBook builds a StaticAddressBook from an alias→address
// map. Aliases are matched case-insensitively.
func NewStaticAddressBook(entries map[string]string) *StaticAddressBook {
	b := &StaticAddressBook{byAlias: make(map[string]string, len(entries))}
	for alias, addr := range entries {
		b.byAlias[strings.ToLower(alias)] = addr
	}
	return b
}

func (b *StaticAddressBook) Resolve(alias string) (string, bool) {
	addr, ok := b.byAlias[strings.ToLower(alias)]
	return addr, ok
}

// aliasFromHeader extracts the bare name half of a MIME
// "alias <name@domain>" address header. Headers that are already a bare
// Bote address (no angle-bracket display form) return ok=false, since
// there is nothing to resolve.
func aliasFromHeader(header string) (alias string, ok bool) {
	open := strings.IndexByte(header, '<')
	close := strings.IndexByte(header, '>')
	if open < 0 || close < 0 || close < open {
		return "", false
	}
	name := strings.TrimSpace(header[:open])
	if name == "" {
		return "", false
	}
	return name, true
}

// resolveHeaderAddress rewrites a MIME address header to a bare Bote
// address string. If header names an alias via book, the alias is
// resolved; otherwise header is assumed to already be a bare address.
// Returns an error naming the unresolved alias so the caller can mark
// the message skip per spec.md §4.7 step 2.
func resolveHeaderAddress(header string, book AddressBook) (string, error) {
	alias, ok := aliasFromHeader(header)
	if !ok {
		return strings.TrimSpace(header), nil
	}
	addr, ok := book.Resolve(alias)
	if !ok {
		return "", fmt.Errorf("email: unresolved alias %q", alias)
	}
	return addr, nil
}
