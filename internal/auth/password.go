package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// hashPassword は平文パスワードを bcrypt でハッシュ化します。
func hashPassword(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// verifyPassword はハッシュと平文パスワードが一致するかどうかを返します。
func verifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyHash は存在しないユーザーでも同じ時間だけ比較を行うためのハッシュです。
var dummyHash = sync.OnceValue(func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("book-catalog-dummy"), bcrypt.DefaultCost)
	if err != nil {
		return ""
	}
	return string(h)
})

func isPasswordTooLong(err error) bool {
	return errors.Is(err, bcrypt.ErrPasswordTooLong)
}
