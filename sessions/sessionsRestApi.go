package sessions

import (
	"campflow/account"
	"campflow/bizerror"
	"campflow/misc"
	"campflow/persistence"
	"campflow/session"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/patrickmn/go-cache"
)

var LoadPermsFunc = LoadPerms

func RegisterSessionsHandler(r *gin.Engine) {
	g := r.Group("/v1/sessions")
	g.POST("", SimpleLoginHandler)
	g.DELETE("", SimpleLogoutHandler)
}

func RegisterSessionHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/session", middleWares...)
	g.GET("", DetailSessionSecurityContext)
}

func SimpleLogoutHandler(c *gin.Context) {
	token, _ := c.Cookie(session.KeySecToken) // ErrNoCookie
	if token != "" {
		session.TokenCache.Delete(token)
	}
	c.SetCookie(session.KeySecToken, "", -1, "/", "", false, false)
	c.AbortWithStatus(http.StatusNoContent)
}

func SimpleLoginHandler(c *gin.Context) {
	login := session.LoginRequest{}
	if err := c.ShouldBindBodyWith(&login, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: err.Error()})
		return
	}

	db := persistence.ActiveDataSourceManager.GormDB(c.Request.Context())
	user := account.User{}
	if err := db.Where(&account.User{Name: login.Name, Secret: account.HashSha256(login.Password)}).
		First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			panic(bizerror.ErrUnauthenticated)
		}
		c.JSON(http.StatusInternalServerError, &misc.ErrorBody{Code: "common.internal_server_error", Message: err.Error()})
		return
	}

	token := uuid.New().String()
	securityContext := session.Session{
		Token:       token,
		Identity:    session.Identity{ID: user.ID, Name: user.Name, Nickname: user.Nickname},
		Perms:       LoadPermsFunc(&user),
		SigningTime: time.Now(),
	}
	session.TokenCache.Set(token, &securityContext, cache.DefaultExpiration)

	c.SetCookie(session.KeySecToken, token, int(session.TokenExpiration/time.Second), "/", "", false, false)
	c.JSON(http.StatusOK, &securityContext)
}

func DetailSessionSecurityContext(c *gin.Context) {
	s := session.ExtractSessionFromGinContext(c)
	if s.Token == "" {
		panic(bizerror.ErrUnauthenticated)
	}

	now := time.Now()
	ttl := session.TokenExpiration - now.Sub(s.SigningTime)
	if ttl <= 0 {
		panic(bizerror.ErrUnauthenticated)
	}
	c.JSON(http.StatusOK, s)
}

func LoadPerms(user *account.User) []string {
	if user.Role == "" {
		return []string{}
	}
	return []string{user.Role}
}
