package domain

import (
	"fmt"
	"github.com/google/uuid"
	"time"
)

// Follower status values
const (
	FollowerActive   = "active"
	FollowerInactive = "inactive"
)

// Activity direction values
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Activity status values
const (
	StatusNew      = "new"
	StatusComplete = "complete"
	StatusError    = "error"
)

const ProtocolActivityPub = "activitypub"

// User is a bridged web domain together with its signing key material.
// The keypair is generated lazily on first contact and never rotated.
type User struct {
	Domain        string
	PublicKeyPem  string
	PrivateKeyPem string
	CreatedAt     time.Time
}

// Follower is a follow relationship between a remote ActivityPub actor
// (src) and a bridged domain (dest). Rows are never deleted; an Undo
// flips Status to inactive and a re-follow flips it back.
type Follower struct {
	Dest       string
	Src        string
	Status     string
	LastFollow string // raw JSON of the most recent Follow activity
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Key returns the canonical composite identifier "dest src".
func (f *Follower) Key() string {
	return FollowerKey(f.Dest, f.Src)
}

func FollowerKey(dest, src string) string {
	return fmt.Sprintf("%s %s", dest, src)
}

// Activity is one append-only log entry for a processed inbound or
// outbound activity. Domains lists every bridged domain the entry was
// fanned out to.
type Activity struct {
	Id        uuid.UUID
	Direction string
	Protocol  string
	Source    string // activity id URL
	Target    string
	Domains   []string
	Body      string // raw JSON as received
	Status    string
	CreatedAt time.Time
}
