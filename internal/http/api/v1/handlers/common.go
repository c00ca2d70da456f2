package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sidpg123/filemate-be/internal/apierror"
	"github.com/sidpg123/filemate-be/internal/models"
)

// AccountKey is the context key under which the auth middleware stores the
// resolved account.
const AccountKey = "account"

// AccountFrom returns the authenticated account set by the auth middleware.
func AccountFrom(c *gin.Context) (models.Account, bool) {
	value, exists := c.Get(AccountKey)
	if !exists {
		return models.Account{}, false
	}
	account, ok := value.(models.Account)
	return account, ok
}

// fail records the error for the translator middleware and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// mustAccount fetches the account or fails the request. Routes behind the
// auth middleware always have one; this guards direct handler tests.
func mustAccount(c *gin.Context) (models.Account, bool) {
	account, ok := AccountFrom(c)
	if !ok {
		fail(c, apierror.Authentication(apierror.CodeMissingToken, "authorization required"))
		return models.Account{}, false
	}
	return account, true
}
