package account

import (
	"crypto/sha256"
	"encoding/hex"
	"os"

	"upkeep/authority"
	"upkeep/bizerror"
	"upkeep/idgen"
	"upkeep/persistence"
	"upkeep/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

var (
	userIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateUserFunc = CreateUser
	QueryUsersFunc = QueryUsers
	LoadPermFunc   = LoadPerm
)

func HashSha256(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}

// LoadPerm resolves a principal's permissions from its account record.
func LoadPerm(userId types.ID) authority.Permissions {
	user := User{}
	db := persistence.ActiveDataSourceManager.GormDB()
	if err := db.Model(&User{}).Where(&User{ID: userId}).Scan(&user).Error; err != nil {
		return authority.Permissions{}
	}
	if user.Role == "" {
		return authority.Permissions{}
	}
	return authority.Permissions{user.Role}
}

func CreateUser(c *UserCreation, s *session.Session) (*UserInfo, error) {
	if !s.Perms.HasElevatedRank() {
		return nil, bizerror.ErrForbidden
	}
	if c.Role != authority.RoleSupervisor && c.Role != authority.RoleTechnician {
		return nil, &bizerror.ErrBadParam{}
	}

	user := User{ID: idgen.NextID(userIdWorker), Name: c.Name, Nickname: c.Nickname,
		Secret: HashSha256(c.Secret), Role: c.Role}
	if err := persistence.ActiveDataSourceManager.GormDB().Save(&user).Error; err != nil {
		return nil, err
	}
	return &UserInfo{ID: user.ID, Name: user.Name, Nickname: user.Nickname, Role: user.Role}, nil
}

func QueryUsers(s *session.Session) (*[]UserInfo, error) {
	var users []UserInfo
	if err := persistence.ActiveDataSourceManager.GormDB().Model(&User{}).Scan(&users).Error; err != nil {
		return nil, err
	}
	return &users, nil
}

func UpdateBasicAuthSecret(u *BasicAuthUpdating, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB()
	user := User{}
	if err := db.Model(&User{}).Where(&User{ID: s.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).Scan(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return bizerror.ErrForbidden
		}
		return err
	}

	return db.Model(&User{}).Where(&User{ID: s.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).
		Update(&User{Secret: HashSha256(u.NewSecret)}).Error
}

// BootstrapSupervisor creates the initial supervisor account when the users
// table is empty. BOOTSTRAP_SECRET overrides the default credential.
func BootstrapSupervisor() error {
	db := persistence.ActiveDataSourceManager.GormDB()
	count := 0
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	secret := os.Getenv("BOOTSTRAP_SECRET")
	if secret == "" {
		secret = "admin123"
	}
	user := User{ID: idgen.NextID(userIdWorker), Name: "admin", Nickname: "admin",
		Secret: HashSha256(secret), Role: authority.RoleSupervisor}
	if err := db.Save(&user).Error; err != nil {
		return err
	}
	logrus.Infof("bootstrap supervisor account %s created", user.Name)
	return nil
}
