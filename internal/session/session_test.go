package session

import (
	"errors"
	"testing"
	"time"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/models"
)

var testUser = models.User{
	ID:       "u-demo",
	Username: "demo",
	Role:     models.RoleDemo,
	Name:     "Demo User",
}

func TestIssueAndVerify(t *testing.T) {
	c := NewCodec([]byte("secret-0123456789"), time.Hour)

	token, err := c.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	sess, err := c.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sess.UserID != testUser.ID {
		t.Errorf("UserID = %q, want %q", sess.UserID, testUser.ID)
	}
	if sess.Username != testUser.Username {
		t.Errorf("Username = %q, want %q", sess.Username, testUser.Username)
	}
	if sess.Role != models.RoleDemo {
		t.Errorf("Role = %q", sess.Role)
	}
	if !sess.ExpiresAt.After(time.Now()) {
		t.Errorf("ExpiresAt = %v, want future", sess.ExpiresAt)
	}
}

func TestVerifyExpired(t *testing.T) {
	c := NewCodec([]byte("secret-0123456789"), -time.Minute)

	token, err := c.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = c.Verify(token)
	if !errors.Is(err, apperr.ErrTokenExpired) {
		t.Errorf("Verify expired token: err = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	c := NewCodec([]byte("secret-0123456789"), time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJub25lIn0.e30."} {
		if _, err := c.Verify(tok); !errors.Is(err, apperr.ErrInvalidToken) {
			t.Errorf("Verify(%q): err = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewCodec([]byte("secret-aaaaaaaaaa"), time.Hour)
	verifier := NewCodec([]byte("secret-bbbbbbbbbb"), time.Hour)

	token, err := issuer.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Errorf("Verify with wrong secret: err = %v, want ErrInvalidToken", err)
	}
}
