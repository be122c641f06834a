package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultPrefix namespaces every key written by the report cache
const DefaultPrefix = "liftdiag"

type KeyGenerator struct {
	Prefix string
}

// NewKeyGenerator creates a new key generator with the given prefix
func NewKeyGenerator(prefix string) *KeyGenerator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &KeyGenerator{Prefix: prefix}
}

// View keys are scoped by snapshot id so a new import never serves stale
// entries, even before invalidation has run.

func (kg *KeyGenerator) DashboardKey(snapshotID string, filter interface{}) string {
	return fmt.Sprintf("%s:dashboard:%s:%s", kg.Prefix, snapshotID, kg.HashFilter(filter))
}

func (kg *KeyGenerator) GroupsKey(snapshotID string, filter interface{}) string {
	return fmt.Sprintf("%s:groups:%s:%s", kg.Prefix, snapshotID, kg.HashFilter(filter))
}

func (kg *KeyGenerator) TimelineKey(snapshotID string, filter interface{}) string {
	return fmt.Sprintf("%s:timeline:%s:%s", kg.Prefix, snapshotID, kg.HashFilter(filter))
}

func (kg *KeyGenerator) StatsKey(snapshotID string, filter interface{}) string {
	return fmt.Sprintf("%s:stats:%s:%s", kg.Prefix, snapshotID, kg.HashFilter(filter))
}

func (kg *KeyGenerator) InstallationKey(snapshotID, installationID string) string {
	return fmt.Sprintf("%s:installation:%s:%s", kg.Prefix, snapshotID, kg.ShortHash(installationID))
}

// Pattern generation for bulk invalidation
func (kg *KeyGenerator) AllPattern() string {
	return fmt.Sprintf("%s:*", kg.Prefix)
}

func (kg *KeyGenerator) ViewPattern(view string) string {
	return fmt.Sprintf("%s:%s:*", kg.Prefix, view)
}

// HashFilter hashes the JSON form of filter
func (kg *KeyGenerator) HashFilter(filter interface{}) string {
	jsonBytes, err := json.Marshal(filter)
	if err != nil {
		filterStr := fmt.Sprintf("%+v", filter)
		hash := md5.Sum([]byte(filterStr))
		return hex.EncodeToString(hash[:])
	}
	hash := md5.Sum(jsonBytes)
	return hex.EncodeToString(hash[:])
}

// ShortHash returns a short hash for readable keys
func (kg *KeyGenerator) ShortHash(data string) string {
	hash := md5.Sum([]byte(data))
	return hex.EncodeToString(hash[:8])
}

// ValidateKey checks if a key follows the expected format
func (kg *KeyGenerator) ValidateKey(key string) bool {
	return strings.HasPrefix(key, kg.Prefix+":")
}

// ExtractView returns the view name and snapshot id of a view key
func (kg *KeyGenerator) ExtractView(key string) (view, snapshotID string, ok bool) {
	if !kg.ValidateKey(key) {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(key, kg.Prefix+":"), ":")
	if len(parts) < 3 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
