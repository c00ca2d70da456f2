package ratelimit

import (
	"fmt"
	"strings"
)

// LoginKey builds a limiter key scoped to one caller attacking one account.
// Keying on the pair keeps a shared office IP from locking out every account
// behind it while still stopping a distributed guess against one email.
func LoginKey(ip, email string) string {
	ip = strings.TrimSpace(ip)
	email = strings.ToLower(strings.TrimSpace(email))
	if ip == "" || email == "" {
		return ""
	}
	return fmt.Sprintf("login:%s:%s", ip, email)
}
