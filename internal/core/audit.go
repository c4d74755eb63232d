package core

import "time"

// AuditRecord is one append-only state transition.
type AuditRecord struct {
	ID            string           `json:"id"            bson:"_id"`
	DocumentID    string           `json:"documentId"    bson:"document_id"`
	ItemType      string           `json:"itemType"      bson:"item_type"`
	ItemKey       string           `json:"itemKey"       bson:"item_key"`
	PreviousState EnforcementEntry `json:"previousState" bson:"previous_state"`
	NewState      EnforcementEntry `json:"newState"      bson:"new_state"`
	Reason        string           `json:"reason"        bson:"reason"`
	ActorID       int64            `json:"actorId"       bson:"user_id"`
	ActorName     string           `json:"actorName"     bson:"user_name"`
	CreatedAt     time.Time        `json:"createdAt"     bson:"created_at"`
}
