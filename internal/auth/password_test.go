package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// Tests hash at bcrypt.MinCost; the default cost takes ~250ms per hash.
func newTestPasswordService() *PasswordService {
	return NewPasswordService(bcrypt.MinCost)
}

func TestNewPasswordService_CostFallback(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{"minimum", bcrypt.MinCost, bcrypt.MinCost},
		{"configured", 10, 10},
		{"zero falls back", 0, DefaultCost},
		{"too high falls back", bcrypt.MaxCost + 1, DefaultCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewPasswordService(tt.cost).cost; got != tt.want {
				t.Errorf("cost = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHash_StoresBcryptAtConfiguredCost(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("pw1")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "pw1" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("Hash() = %q, want a bcrypt hash", hash)
	}
	if cost, err := bcrypt.Cost([]byte(hash)); err != nil || cost != bcrypt.MinCost {
		t.Errorf("bcrypt.Cost() = (%d, %v), want (%d, nil)", cost, err, bcrypt.MinCost)
	}

	again, _ := ps.Hash("pw1")
	if again == hash {
		t.Error("two hashes of the same password are identical; salt is not random")
	}
}

func TestHash_Length(t *testing.T) {
	ps := newTestPasswordService()

	tests := []struct {
		bytes   int
		wantErr error
	}{
		{1, nil},
		{72, nil},
		{73, ErrPasswordTooLong},
		{200, ErrPasswordTooLong},
	}
	for _, tt := range tests {
		_, err := ps.Hash(strings.Repeat("a", tt.bytes))
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Hash(%d bytes) error = %v, want %v", tt.bytes, err, tt.wantErr)
		}
	}

	// the limit counts bytes, not runes: 25 three-byte runes is 75 bytes
	if _, err := ps.Hash(strings.Repeat("密", 25)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Hash(75-byte unicode) error = %v, want ErrPasswordTooLong", err)
	}
}

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("pw1")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name         string
		hash         string
		password     string
		wantErr      bool
		wantMismatch bool
	}{
		{"correct", hash, "pw1", false, false},
		{"wrong", hash, "pw2", true, true},
		{"case differs", hash, "PW1", true, true},
		{"empty", hash, "", true, true},
		{"not a bcrypt hash", "not-a-valid-bcrypt-hash", "pw1", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrPasswordMismatch) != tt.wantMismatch {
				t.Errorf("Verify() error = %v, want mismatch = %v", err, tt.wantMismatch)
			}
		})
	}
}

func TestHashVerify_RoundTrip(t *testing.T) {
	ps := newTestPasswordService()

	for _, password := range []string{"hello123", "p@$$w0rd!#%", "пароль-密码", "  padded  ", " "} {
		hash, err := ps.Hash(password)
		if err != nil {
			t.Fatalf("Hash(%q) error = %v", password, err)
		}
		if err := ps.Verify(hash, password); err != nil {
			t.Errorf("Verify(%q) error = %v", password, err)
		}
	}
}
