package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "s3cret" {
		t.Fatalf("hash must not equal the plaintext password")
	}
	if !CheckPassword("s3cret", hash) {
		t.Fatalf("expected correct password to validate")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected wrong password to fail validation")
	}
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Fatalf("malformed hash must never validate")
	}
}
