package domain

import "time"

// Sign-in providers recorded on a User.
const (
	ProviderPassword = "password"
)

// User is an authentication identity. Passwords are stored as bcrypt hashes;
// OAuth users have an empty hash and a provider name.
type User struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	Email         string    `json:"email"          gorm:"type:varchar(320);not null;uniqueIndex"`
	PasswordHash  string    `json:"-"              gorm:"type:varchar(100)"`
	Provider      string    `json:"provider"       gorm:"type:varchar(32);not null;default:password"`
	EmailVerified bool      `json:"email_verified" gorm:"not null;default:false"`
	VerifyToken   *string   `json:"-"              gorm:"type:varchar(64);uniqueIndex"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// AuthSession is a credential lease. Its ID is the JWT "jti" claim; a lease
// with RevokedAt set no longer authenticates requests.
type AuthSession struct {
	ID        string     `gorm:"type:char(36);primaryKey"`
	UserID    string     `gorm:"type:char(36);not null;index"`
	ExpiresAt time.Time  `gorm:"not null;index"`
	RevokedAt *time.Time `gorm:"index"`
	CreatedAt time.Time
}

// TableName returns the database table name for AuthSession.
func (AuthSession) TableName() string { return "auth_sessions" }
