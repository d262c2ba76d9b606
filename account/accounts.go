package account

import (
	"campflow/bizerror"
	"campflow/idgen"
	"campflow/persistence"
	"campflow/session"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

var (
	userIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateUserFunc        = CreateUser
	QueryUsersFunc        = QueryUsers
	UpdateUserFunc        = UpdateUser
	UsersWithRoleFunc     = UsersWithRole
	QueryAccountNamesFunc = QueryAccountNames
)

func HashSha256(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}

func CreateUser(c *UserCreation, s *session.Session) (*UserInfo, error) {
	if !s.Perms.HasRole(SystemAdminRole) {
		return nil, bizerror.ErrForbidden
	}

	user := User{ID: idgen.NextID(userIdWorker), Name: c.Name, Nickname: c.Nickname, Role: c.Role,
		Secret: HashSha256(c.Secret), CreateTime: types.CurrentTimestamp()}
	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).Create(&user).Error; err != nil {
		return nil, err
	}
	return &UserInfo{ID: user.ID, Name: user.Name, Nickname: user.Nickname, Role: user.Role}, nil
}

func QueryUsers(s *session.Session) (*[]UserInfo, error) {
	var users []UserInfo
	if err := persistence.ActiveDataSourceManager.GormDB(s.Context).Model(&User{}).Scan(&users).Error; err != nil {
		return nil, err
	}
	return &users, nil
}

func UpdateUser(userId types.ID, c *UserUpdating, s *session.Session) error {
	if !s.Perms.HasRole(SystemAdminRole) && userId != s.Identity.ID {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		user := User{ID: userId}
		if err := tx.Where(&user).First(&user).Error; err != nil {
			return err
		}
		return tx.Model(&user).Update(&User{Nickname: c.Nickname}).Error
	})
}

func UpdateBasicAuthSecret(u *BasicAuthUpdating, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	user := User{}
	if err := db.Model(&User{}).Where(&User{ID: s.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).
		First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return bizerror.ErrInvalidPassword
		}
		return err
	}

	return db.Model(&User{}).Where(&User{ID: s.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).
		Update(&User{Secret: HashSha256(u.NewSecret)}).Error
}

// UsersWithRole resolves the notification fan-out list for a workflow step.
func UsersWithRole(role string, db *gorm.DB) ([]UserInfo, error) {
	var users []UserInfo
	if err := db.Model(&User{}).Where(&User{Role: role}).Scan(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func QueryAccountNames(ids []types.ID, db *gorm.DB) (map[types.ID]string, error) {
	if len(ids) == 0 {
		return map[types.ID]string{}, nil
	}
	var records []UserInfo
	if err := db.Model(&User{}).Where("id IN (?)", ids).Scan(&records).Error; err != nil {
		return nil, err
	}
	result := map[types.ID]string{}
	for _, r := range records {
		result[r.ID] = r.DisplayName()
	}
	return result, nil
}

// BootstrapAdminAccount ADMIN_SECRET
func BootstrapAdminAccount(db *gorm.DB) error {
	var admin User
	err := db.Where(&User{Name: DefaultAdminName}).First(&admin).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	secret := os.Getenv("ADMIN_SECRET")
	if secret == "" {
		secret = "admin123"
		logrus.Warn("ADMIN_SECRET is not set, default admin secret is used")
	}
	admin = User{ID: idgen.NextID(userIdWorker), Name: DefaultAdminName, Role: SystemAdminRole,
		Secret: HashSha256(secret), CreateTime: types.CurrentTimestamp()}
	return db.Create(&admin).Error
}
