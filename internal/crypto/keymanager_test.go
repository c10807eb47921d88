package crypto

import (
	"strings"
	"testing"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEncryptDecryptKey(t *testing.T) {
	blob, err := EncryptKey("0x"+testKeyHex, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey failed: %v", err)
	}

	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptKey failed: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("round-trip key = %s, want %s", got, testKeyHex)
	}
}

func TestDecryptKeyWrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "correct")
	if err != nil {
		t.Fatalf("EncryptKey failed: %v", err)
	}

	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Fatal("DecryptKey should fail with the wrong password")
	}
}

func TestEncryptKeyRejectsBadInput(t *testing.T) {
	if _, err := EncryptKey(testKeyHex, ""); err == nil {
		t.Error("empty password should be rejected")
	}
	if _, err := EncryptKey("not-hex", "pw"); err == nil {
		t.Error("non-hex key should be rejected")
	}
	if _, err := EncryptKey("abcd", "pw"); err == nil {
		t.Error("short key should be rejected")
	}
}

func TestLoadKeyPrecedence(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKeyHex})
	if err != nil {
		t.Fatalf("LoadKey failed: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("LoadKey = %s, want raw key with prefix stripped", got)
	}

	if _, err := LoadKey(KeyConfig{}); err == nil {
		t.Error("LoadKey with no source should fail")
	}
}

func TestLoadPrivateKey(t *testing.T) {
	pk, err := LoadPrivateKey(KeyConfig{RawPrivateKey: testKeyHex})
	if err != nil {
		t.Fatalf("LoadPrivateKey failed: %v", err)
	}
	if pk == nil || pk.D.Sign() == 0 {
		t.Fatal("LoadPrivateKey returned an empty key")
	}

	if _, err := LoadPrivateKey(KeyConfig{RawPrivateKey: strings.Repeat("0", 64)}); err == nil {
		t.Error("all-zero key should be rejected by the curve check")
	}
}
