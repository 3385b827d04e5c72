package controller_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tablebook/events"
	"tablebook/route"
	"tablebook/testutil"
	"tablebook/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type api struct {
	router http.Handler
	db     *gorm.DB
	tokens *utils.TokenManager
}

func newAPI(t *testing.T, publisher events.Publisher) api {
	db := testutil.NewDB(t)
	tokens := testutil.NewTokens()
	router := route.NewRouter(route.Options{
		DB:         db,
		Tokens:     tokens,
		Publisher:  publisher,
		Logger:     testutil.Logger(),
		BcryptCost: bcrypt.MinCost,
	})
	return api{router: router, db: db, tokens: tokens}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
