package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("workshop@123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "workshop@123" {
		t.Fatal("hash equals plaintext")
	}
	if !VerifyPassword(hash, "workshop@123") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}
