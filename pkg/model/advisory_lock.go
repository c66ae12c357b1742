package model

import "time"

// AdvisoryLock serializes check-then-act sequences that the document store
// cannot protect on its own: the booking overlap check and the member-share
// de-dup upsert. The _id is a composite key for the guarded slot; inserting a
// duplicate key fails, which is the lock being held.
type AdvisoryLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
