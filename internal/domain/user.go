package domain

import "time"

// User is the community profile record. Account management lives outside this
// service; it only reads users to resolve display identities.
type User struct {
	UserID      string    `json:"id" dynamodbav:"user_id"`
	Username    string    `json:"username" dynamodbav:"username"`
	DisplayName string    `json:"display_name" dynamodbav:"display_name"`
	AvatarURL   *string   `json:"avatar_url" dynamodbav:"avatar_url"`
	Role        string    `json:"role" dynamodbav:"role"`
	Enable      int       `json:"enable" dynamodbav:"enable"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
}

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
	RoleUser  = "user"
)

// Identity projects the user into its display identity.
func (u *User) Identity() ActorIdentity {
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	return ActorIdentity{UserID: u.UserID, DisplayName: name, AvatarURL: u.AvatarURL}
}
