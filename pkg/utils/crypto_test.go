package utils

import "testing"

func TestEncryptDecrypt(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	encrypted, err := Encrypt([]byte("app-password"), key)
	if err != nil {
		t.Fatal(err)
	}
	if encrypted == "app-password" {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := Decrypt(encrypted, key)
	if err != nil {
		t.Fatal(err)
	}
	if decrypted != "app-password" {
		t.Fatalf("got %q", decrypted)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), []byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Decrypt(encrypted, []byte("ffffffffffffffffffffffffffffffff")); err == nil {
		t.Fatal("expected decryption failure with wrong key")
	}
}

func TestDecryptGarbage(t *testing.T) {
	if _, err := Decrypt("bm90LWEtY2lwaGVydGV4dA==", []byte("0123456789abcdef0123456789abcdef")); err == nil {
		t.Fatal("expected error for malformed ciphertext")
	}
}
