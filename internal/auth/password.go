package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2idパラメータ。ソルトは128bit、ダイジェストは256bit。
const (
	saltLength   = 16
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// Hasher はパスワードのソルト付き一方向ダイジェストを生成・検証する。
// 平文パスワードは保存も出力もしない。
type Hasher struct{}

// NewHasher はHasherを生成する。
func NewHasher() *Hasher {
	return &Hasher{}
}

// Generate は新しいランダムソルトを生成し、パスワードのダイジェストを計算して返す。
func (h *Hasher) Generate(password string) (hash, salt []byte, err error) {
	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	hash = argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hash, salt, nil
}

// Verify は保存済みのソルトでダイジェストを再計算し、保存済みハッシュと比較する。
// 比較は一定時間で行い、タイミング攻撃による情報漏えいを避ける。
func (h *Hasher) Verify(password string, salt, hash []byte) bool {
	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(computed, hash) == 1
}
