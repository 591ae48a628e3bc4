package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword returns the bcrypt hash stored on a clinic account. Only the
// hash is ever persisted; the plaintext never leaves the request.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches a stored account hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
