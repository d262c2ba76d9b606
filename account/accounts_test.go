package account_test

import (
	"campflow/account"
	"campflow/bizerror"
	"campflow/persistence"
	"campflow/session"
	"campflow/testinfra"
	"context"
	"os"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("userManage", func() {
	var (
		testDatabase *testinfra.TestDatabase
	)
	BeforeEach(func() {
		testDatabase = testinfra.StartMysqlTestDatabase("campflow")
		persistence.ActiveDataSourceManager = testDatabase.DS
		Expect(testDatabase.DS.GormDB(context.TODO()).AutoMigrate(&account.User{}).Error).To(BeNil())
	})
	AfterEach(func() {
		testinfra.StopMysqlTestDatabase(testDatabase)
	})

	Describe("UpdateBasicAuthSecret", func() {
		It("should be able to update basic auth secret correctly", func() {
			sec := session.Session{Identity: session.Identity{ID: 1}, Context: context.TODO()}
			Expect(testDatabase.DS.GormDB(context.TODO()).Save(&account.User{ID: 1, Name: "aaa",
				Secret: account.HashSha256("123456"), CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())
			Expect(account.UpdateBasicAuthSecret(&account.BasicAuthUpdating{OriginalSecret: "234567", NewSecret: "654321"}, &sec)).To(Equal(bizerror.ErrInvalidPassword))
			Expect(account.UpdateBasicAuthSecret(&account.BasicAuthUpdating{OriginalSecret: "123456", NewSecret: "654321"}, &sec)).To(BeNil())

			user := account.User{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&account.User{}).Where(&account.User{ID: sec.Identity.ID}).First(&user).Error).To(BeNil())
			Expect(user.Secret).To(Equal(account.HashSha256("654321")))
		})
	})

	Describe("DisplayName", func() {
		It("should be able to compute display name", func() {
			Expect(account.User{Name: "test", Nickname: "Test"}.DisplayName()).To(Equal("Test"))
			Expect(account.User{Name: "test", Nickname: ""}.DisplayName()).To(Equal("test"))

			Expect(account.UserInfo{Name: "test", Nickname: "Test"}.DisplayName()).To(Equal("Test"))
			Expect(account.UserInfo{Name: "test", Nickname: ""}.DisplayName()).To(Equal("test"))
		})
	})

	Describe("CreateUser", func() {
		It("should be blocked when user lack of permission", func() {
			sec := &session.Session{Identity: session.Identity{ID: 1}, Context: context.TODO()}

			u, err := account.CreateUser(&account.UserCreation{Name: "test", Secret: "123456", Role: "manager"}, sec)
			Expect(err).To(Equal(bizerror.ErrForbidden))
			Expect(u).To(BeNil())
		})

		It("should be able to create users correctly", func() {
			sec := testinfra.BuildSession(1, account.SystemAdminRole)
			u, err := account.CreateUser(&account.UserCreation{Name: "test", Secret: "123456", Role: "manager"}, sec)
			Expect(err).To(BeNil())
			Expect(u.ID).ToNot(BeZero())
			Expect(*u).To(Equal(account.UserInfo{ID: u.ID, Name: "test", Role: "manager"}))

			user := account.User{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&account.User{}).Where(&account.User{ID: u.ID}).First(&user).Error).To(BeNil())
			Expect(user.Secret).To(Equal(account.HashSha256("123456")))
			Expect(user.Role).To(Equal("manager"))
		})
	})

	Describe("QueryUsers", func() {
		It("should be able to query users correctly", func() {
			sec := testinfra.BuildSession(1, account.SystemAdminRole)
			Expect(testDatabase.DS.GormDB(context.TODO()).Save(&account.User{ID: 1, Name: "aaa", Role: "manager",
				Secret: account.HashSha256("123456"), CreateTime: types.CurrentTimestamp()}).Error).To(BeNil())

			users, err := account.QueryUsers(sec)
			Expect(err).To(BeNil())
			Expect(len(*users)).To(Equal(1))
			Expect((*users)[0]).To(Equal(account.UserInfo{ID: 1, Name: "aaa", Role: "manager"}))
		})
	})

	Describe("UsersWithRole", func() {
		It("should return the fan-out list of a role", func() {
			db := testDatabase.DS.GormDB(context.TODO())
			now := types.CurrentTimestamp()
			Expect(db.Save(&account.User{ID: 1, Name: "m1", Role: "manager", CreateTime: now}).Error).To(BeNil())
			Expect(db.Save(&account.User{ID: 2, Name: "m2", Role: "manager", CreateTime: now}).Error).To(BeNil())
			Expect(db.Save(&account.User{ID: 3, Name: "d1", Role: "director", CreateTime: now}).Error).To(BeNil())

			users, err := account.UsersWithRole("manager", db)
			Expect(err).To(BeNil())
			Expect(len(users)).To(Equal(2))

			users, err = account.UsersWithRole("finance", db)
			Expect(err).To(BeNil())
			Expect(users).To(BeEmpty())
		})
	})

	Describe("QueryAccountNames", func() {
		It("should map ids to display names", func() {
			db := testDatabase.DS.GormDB(context.TODO())
			now := types.CurrentTimestamp()
			Expect(db.Save(&account.User{ID: 1, Name: "m1", Nickname: "Manager One", CreateTime: now}).Error).To(BeNil())
			Expect(db.Save(&account.User{ID: 2, Name: "d1", CreateTime: now}).Error).To(BeNil())

			names, err := account.QueryAccountNames([]types.ID{1, 2}, db)
			Expect(err).To(BeNil())
			Expect(names).To(Equal(map[types.ID]string{1: "Manager One", 2: "d1"}))

			names, err = account.QueryAccountNames([]types.ID{}, db)
			Expect(err).To(BeNil())
			Expect(names).To(BeEmpty())
		})
	})

	Describe("BootstrapAdminAccount", func() {
		It("should create the default admin only once", func() {
			db := testDatabase.DS.GormDB(context.TODO())
			os.Setenv("ADMIN_SECRET", "sup3rs3cret")
			defer os.Unsetenv("ADMIN_SECRET")

			Expect(account.BootstrapAdminAccount(db)).To(BeNil())

			admin := account.User{}
			Expect(db.Where(&account.User{Name: account.DefaultAdminName}).First(&admin).Error).To(BeNil())
			Expect(admin.Role).To(Equal(account.SystemAdminRole))
			Expect(admin.Secret).To(Equal(account.HashSha256("sup3rs3cret")))

			// idempotent
			Expect(account.BootstrapAdminAccount(db)).To(BeNil())
			var count int
			Expect(db.Model(&account.User{}).Count(&count).Error).To(BeNil())
			Expect(count).To(Equal(1))
		})
	})
})
