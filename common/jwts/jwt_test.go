package jwts

import (
	"testing"
	"time"
)

func TestGenParseRoundTrip(t *testing.T) {
	token, err := GenToken("u_123", "secret", time.Hour)
	if err != nil {
		t.Fatalf("签发失败: %v", err)
	}
	userID, err := ParseToken(token, "secret")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if userID != "u_123" {
		t.Fatalf("userID 不一致: %s", userID)
	}
}

func TestParseWrongSecret(t *testing.T) {
	token, _ := GenToken("u_123", "secret", time.Hour)
	if _, err := ParseToken(token, "other"); err == nil {
		t.Fatalf("错误密钥应解析失败")
	}
}

func TestParseExpired(t *testing.T) {
	token, _ := GenToken("u_123", "secret", -time.Minute)
	if _, err := ParseToken(token, "secret"); err != ErrTokenExpired {
		t.Fatalf("过期应返回 ErrTokenExpired, got %v", err)
	}
}
