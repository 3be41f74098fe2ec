// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// EntryStatus is the lifecycle state of a recycle-bin entry. An entry is
// created pending and transitions exactly once to restored or purged,
// terminal thereafter.
type EntryStatus string

const (
	EntryPending  EntryStatus = "pending"
	EntryRestored EntryStatus = "restored"
	EntryPurged   EntryStatus = "purged"
)

// RecordTypeLiterature tags recycle-bin entries holding literature
// records. The ledger schema leaves room for other record types.
const RecordTypeLiterature = "literature"

// RecycleEntry is one deletion event in the recycle-bin ledger. It holds
// a full point-in-time snapshot of the deleted record so restoration does
// not depend on the record store retaining deleted rows.
type RecycleEntry struct {
	ID         string      `json:"id" yaml:"id"`
	RecordType string      `json:"record_type" yaml:"record_type"`
	RecordID   string      `json:"record_id" yaml:"record_id"`
	Snapshot   Record      `json:"snapshot" yaml:"snapshot"`
	DeletedBy  string      `json:"deleted_by" yaml:"deleted_by"`
	DeletedAt  time.Time   `json:"deleted_at" yaml:"deleted_at"`
	ExpiresAt  time.Time   `json:"expires_at" yaml:"expires_at"`
	Status     EntryStatus `json:"status" yaml:"status"`
}
