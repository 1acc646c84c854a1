package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/m-ahsan-nazer/cacophony-api/constant"
)

// User is the authenticated principal handed in by the boundary.
type User struct {
	ID               uuid.UUID                 `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Username         string                    `json:"username" gorm:"type:varchar(255);not null;uniqueIndex"`
	GlobalPermission constant.GlobalPermission `json:"global_permission" gorm:"type:varchar(16);not null;default:'off'"`
	CreatedAt        time.Time                 `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) HasGlobalRead() bool {
	return u.GlobalPermission == constant.GlobalPermissionRead ||
		u.GlobalPermission == constant.GlobalPermissionWrite
}

func (u *User) HasGlobalWrite() bool {
	return u.GlobalPermission == constant.GlobalPermissionWrite
}

type GroupUser struct {
	GroupID   uuid.UUID `json:"group_id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey;index:idx_group_users_user_id"`
	Admin     bool      `json:"admin" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (GroupUser) TableName() string {
	return "group_users"
}

type DeviceUser struct {
	DeviceID  uuid.UUID `json:"device_id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey;index:idx_device_users_user_id"`
	Admin     bool      `json:"admin" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (DeviceUser) TableName() string {
	return "device_users"
}
