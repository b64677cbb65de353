package account

import (
	"github.com/fundwit/go-commons/types"
)

type User struct {
	ID       types.ID `json:"id" gorm:"primary_key"`
	Name     string   `json:"name" gorm:"unique_index:uni_user_name"`
	Nickname string   `json:"nickname"`
	Secret   string   `json:"-"`

	// Role is the principal's rank, one of authority.RoleSupervisor or
	// authority.RoleTechnician.
	Role string `json:"role"`
}

func (r *User) TableName() string {
	return "users"
}

type UserInfo struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
	Role     string   `json:"role"`
}

func (u UserInfo) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

type UserCreation struct {
	Name     string `json:"name" binding:"required,lte=255"`
	Nickname string `json:"nickname"`
	Secret   string `json:"secret" binding:"required,gte=6"`
	Role     string `json:"role" binding:"required"`
}

type BasicAuthUpdating struct {
	OriginalSecret string `json:"originalSecret" binding:"required"`
	NewSecret      string `json:"newSecret" binding:"required,gte=6"`
}
