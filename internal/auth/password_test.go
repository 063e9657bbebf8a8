package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestPasswordHashRoundTrip 属性测试：哈希后的密码能用原密码验证通过
func TestPasswordHashRoundTrip(t *testing.T) {
	pm := NewPasswordManager()

	rapid.Check(t, func(t *rapid.T) {
		password := rapid.StringMatching(`[a-zA-Z0-9!@#$%^&*]{6,32}`).Draw(t, "password")

		hashed, err := pm.HashPassword(password)
		if err != nil {
			t.Fatalf("哈希失败: %v", err)
		}
		if hashed == password {
			t.Fatal("哈希结果不能等于明文")
		}
		if !pm.VerifyPassword(hashed, password) {
			t.Fatal("原密码验证应通过")
		}
	})
}

// TestPasswordVerifyRejectsWrong 错误密码验证失败
func TestPasswordVerifyRejectsWrong(t *testing.T) {
	pm := NewPasswordManager()

	rapid.Check(t, func(t *rapid.T) {
		password := rapid.StringMatching(`[a-zA-Z0-9]{6,32}`).Draw(t, "password")
		other := rapid.StringMatching(`[a-zA-Z0-9]{6,32}`).Draw(t, "other")
		if other == password {
			t.Skip()
		}

		hashed, err := pm.HashPassword(password)
		if err != nil {
			t.Fatalf("哈希失败: %v", err)
		}
		if pm.VerifyPassword(hashed, other) {
			t.Fatal("错误密码验证应失败")
		}
	})
}

func TestHashEmptyPassword(t *testing.T) {
	pm := NewPasswordManager()

	_, err := pm.HashPassword("")
	assert.Error(t, err)
}

func TestIsValidPassword(t *testing.T) {
	pm := NewPasswordManager()

	assert.Error(t, pm.IsValidPassword("short"))
	assert.Error(t, pm.IsValidPassword(""))
	assert.NoError(t, pm.IsValidPassword("secret1"))
}
