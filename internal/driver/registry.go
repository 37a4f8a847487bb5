package driver

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var registry = struct {
	sync.RWMutex
	byName  map[string]Driver // primary names and aliases, lowercase
	primary []string          // sorted primary names
}{byName: make(map[string]Driver)}

// Register adds d under its name and aliases. Driver packages call it from
// init, so a duplicate name is a programming error and panics.
func Register(d Driver) {
	registry.Lock()
	defer registry.Unlock()

	keys := append([]string{d.Name()}, d.Aliases()...)
	for _, k := range keys {
		k = strings.ToLower(k)
		if _, dup := registry.byName[k]; dup {
			panic(fmt.Sprintf("driver %q already registered", k))
		}
	}
	for _, k := range keys {
		registry.byName[strings.ToLower(k)] = d
	}

	registry.primary = append(registry.primary, d.Name())
	sort.Strings(registry.primary)
}

func lookup(nameOrAlias string) (Driver, bool) {
	registry.RLock()
	defer registry.RUnlock()
	d, ok := registry.byName[strings.ToLower(strings.TrimSpace(nameOrAlias))]
	return d, ok
}

// Get returns the driver registered under nameOrAlias, ignoring case.
func Get(nameOrAlias string) (Driver, error) {
	d, ok := lookup(nameOrAlias)
	if !ok {
		return nil, fmt.Errorf("unknown database driver: %q (available: %v)", nameOrAlias, Available())
	}
	return d, nil
}

// Canonicalize maps an alias such as "dameng" or "postgresql" to the
// primary name. Unknown names come back unchanged.
func Canonicalize(nameOrAlias string) string {
	if d, ok := lookup(nameOrAlias); ok {
		return d.Name()
	}
	return nameOrAlias
}

// Available returns the sorted primary driver names.
func Available() []string {
	registry.RLock()
	defer registry.RUnlock()
	return append([]string(nil), registry.primary...)
}

// IsRegistered reports whether nameOrAlias names a driver.
func IsRegistered(nameOrAlias string) bool {
	_, ok := lookup(nameOrAlias)
	return ok
}

// GetDialect returns the dialect for a driver name or alias, or nil when
// no driver is registered under that name.
func GetDialect(nameOrAlias string) Dialect {
	if d, ok := lookup(nameOrAlias); ok {
		return d.Dialect()
	}
	return nil
}
