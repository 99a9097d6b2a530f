package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model. Anonymous accounts are provisioned with a
// generated username and avatar; JWTSecret, when set, signs every token the
// user is issued in place of the global signing key.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	IsAnonymous    bool       `bun:"is_anonymous" json:"is_anonymous,omitempty"`
	JWTSecret      string     `bun:"jwt_secret" json:"-"`
	ProfileImage   string     `bun:"profile_image" json:"profile_image,omitempty"`
	LastSignedInAt *time.Time `bun:"last_signed_in_at,nullzero" json:"last_signed_in_at,omitempty"`
	LastActiveAt   *time.Time `bun:"last_active_at,nullzero" json:"last_active_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// RefreshToken is the durable record behind every issued refresh token. The
// record id doubles as the token's jti claim; IsRevoked moves false to true
// exactly once, either on rotation or during a breach cascade.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	IsRevoked     bool       `bun:"is_revoked" json:"is_revoked,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Live reports whether the record can still be redeemed at the given time.
func (r *RefreshToken) Live(at time.Time) bool {
	return r != nil && !r.IsRevoked && at.Before(r.ExpiresAt)
}

// AccountCounter backs the monotonic accounts-created counter. Each
// provisioned anonymous account inserts one row; the autoincrement id is the
// seed for the generated username and avatar.
type AccountCounter struct {
	bun.BaseModel `bun:"table:account_counters,alias:actr"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
