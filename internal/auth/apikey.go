package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// APIKeySecretPrefix API密钥明文的固定前缀，认证时据此与 JWT 区分
const APIKeySecretPrefix = "neura_"

const keyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const keyRandomLength = 32

// GenerateAPIKey 生成一个新的密钥明文
//
// 格式: "neura_" + 32 位小写字母数字随机串，随机源为 crypto/rand。
func GenerateAPIKey() (string, error) {
	buf := make([]byte, keyRandomLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	b := strings.Builder{}
	b.WriteString(APIKeySecretPrefix)
	for _, v := range buf {
		b.WriteByte(keyAlphabet[int(v)%len(keyAlphabet)])
	}
	return b.String(), nil
}

// HashAPIKey 返回密钥明文的 SHA-256 摘要（hex 编码）
//
// 存储层只保留摘要，明文在签发响应之外不落任何地方。
func HashAPIKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// APIKeyDisplayPrefix 返回密钥的展示前缀，用于列表页辨识
func APIKeyDisplayPrefix(secret string) string {
	if len(secret) <= 12 {
		return secret
	}
	return secret[:12] + "..."
}

// IsAPIKey 判断凭证串是否为API密钥格式
func IsAPIKey(credential string) bool {
	return strings.HasPrefix(credential, APIKeySecretPrefix)
}
