package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Top-level document keys.
const (
	KeyTasks                = "tasks"
	KeyRecurringTasks       = "recurringTasks"
	KeyRecurringCompletions = "recurringCompletions"
	KeyCompletedHistory     = "completedHistory"
	KeyRewards              = "rewards"
	KeyCustomShopItems      = "customShopItems"
	KeyHiddenShopItems      = "hiddenShopItems"
	KeyFocusPinnedIDs       = "focusPinnedIds"
	KeyStats                = "stats"
	KeyShopPurchases        = "shopPurchases"
	KeyPresetsInitialized   = "presetsInitialized"
)

var knownKeys = map[string]bool{
	KeyTasks:                true,
	KeyRecurringTasks:       true,
	KeyRecurringCompletions: true,
	KeyCompletedHistory:     true,
	KeyRewards:              true,
	KeyCustomShopItems:      true,
	KeyHiddenShopItems:      true,
	KeyFocusPinnedIDs:       true,
	KeyStats:                true,
	KeyShopPurchases:        true,
	KeyPresetsInitialized:   true,
}

// DomainSnapshot separates snapshot fingerprints from any other hash.
const DomainSnapshot = "taskcoin/snapshot/v1"

// snapshotFields has Snapshot's layout without its JSON methods.
type snapshotFields Snapshot

// MarshalJSON encodes the snapshot with Flags as top-level boolean keys.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(snapshotFields(s))
	if err != nil {
		return nil, err
	}
	if len(s.Flags) == 0 {
		return base, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(base, &doc); err != nil {
		return nil, err
	}
	for k, v := range s.Flags {
		if knownKeys[k] {
			continue
		}
		doc[k] = json.RawMessage(fmt.Sprintf("%t", v))
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a snapshot document. Unknown top-level keys holding
// booleans become Flags; other unknown keys are ignored.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var f snapshotFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	*s = Snapshot(f)
	s.Flags = map[string]bool{}
	for k, raw := range doc {
		if knownKeys[k] {
			continue
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			s.Flags[k] = b
		}
	}
	return nil
}

// Decode parses a snapshot document and normalizes its collections.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	s.Normalize()
	return s, nil
}

// MergeOver shallow-merges the top-level fields present in data over base.
// A present key replaces the whole field; arrays and objects are never
// merged element-wise. Keys absent from data keep base's value.
func MergeOver(base Snapshot, data []byte) (Snapshot, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("merge snapshot: %w", err)
	}
	var in Snapshot
	if err := json.Unmarshal(data, &in); err != nil {
		return Snapshot{}, fmt.Errorf("merge snapshot: %w", err)
	}

	out := base.Clone()
	for key := range doc {
		switch key {
		case KeyTasks:
			out.Tasks = in.Tasks
		case KeyRecurringTasks:
			out.RecurringTasks = in.RecurringTasks
		case KeyRecurringCompletions:
			out.RecurringCompletions = in.RecurringCompletions
		case KeyCompletedHistory:
			out.CompletedHistory = in.CompletedHistory
		case KeyRewards:
			out.Rewards = in.Rewards
		case KeyCustomShopItems:
			out.CustomShopItems = in.CustomShopItems
		case KeyHiddenShopItems:
			out.HiddenShopItems = in.HiddenShopItems
		case KeyFocusPinnedIDs:
			out.FocusPinnedIDs = in.FocusPinnedIDs
		case KeyStats:
			out.Stats = in.Stats
		case KeyShopPurchases:
			out.ShopPurchases = in.ShopPurchases
		case KeyPresetsInitialized:
			out.PresetsInitialized = in.PresetsInitialized
		default:
			if v, ok := in.Flags[key]; ok {
				out.Flags[key] = v
			}
		}
	}
	out.Normalize()
	return out, nil
}

// ToDocument converts s to a generic key/value tree, e.g. for YAML export.
func ToDocument(s Snapshot) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Fingerprint returns a stable content hash of s.
// Format: hex(SHA256(DomainSnapshot + 0x00 + json)).
func Fingerprint(s Snapshot) (string, error) {
	s.Normalize()
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainSnapshot))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// NormalizeText trims s and converts it to Unicode NFC so that visually
// identical titles compare and hash equal.
func NormalizeText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
