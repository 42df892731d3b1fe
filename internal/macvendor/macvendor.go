// Package macvendor provides MAC address to vendor name lookup using the
// embedded oui.json database. It loads the OUI database into memory at
// startup and provides O(1) lookups by MAC prefix. Diagnostic only; lookup
// results never affect protocol behavior.
package macvendor

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// UnknownVendor is returned for prefixes absent from the database.
const UnknownVendor = "Unknown Manufacturer"

//go:embed oui.json
var ouiData []byte

// Entry represents a single OUI database record.
type Entry struct {
	MacPrefix  string `json:"macPrefix"`
	VendorName string `json:"vendorName"`
}

// DB is the in-memory MAC vendor database.
type DB struct {
	mu      sync.RWMutex
	vendors map[string]string // normalized prefix -> vendor name
}

// NewDB loads the embedded OUI database.
func NewDB() (*DB, error) {
	db := &DB{vendors: make(map[string]string)}
	if err := db.Load(ouiData); err != nil {
		return nil, err
	}
	return db, nil
}

// Load parses an oui.json byte slice and replaces the in-memory table.
func (db *DB) Load(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing oui.json: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.vendors = make(map[string]string, len(entries))
	for _, e := range entries {
		prefix := normalize(e.MacPrefix)
		if len(prefix) >= 6 {
			db.vendors[prefix] = e.VendorName
		}
	}
	return nil
}

// Lookup returns the vendor name for a MAC address, or UnknownVendor when the
// 6-hex-digit prefix is not listed.
func (db *DB) Lookup(mac string) string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	normalized := normalize(mac)
	if len(normalized) < 6 {
		return UnknownVendor
	}
	if vendor, ok := db.vendors[normalized[:6]]; ok {
		return vendor
	}
	return UnknownVendor
}

// Count returns the number of vendor entries loaded.
func (db *DB) Count() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors)
}

// normalize converts "08:00:27", "08-00-27", or "0800.27" to "080027".
func normalize(s string) string {
	s = strings.ReplaceAll(s, ":", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, ".", "")
	return strings.ToLower(s)
}
