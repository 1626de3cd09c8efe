package identity_test

import (
	"testing"

	campushub "github.com/campushub/campushub-go"
	"github.com/campushub/campushub-go/identity"
	"github.com/golang-jwt/jwt/v5"
)

// mint builds an unsigned but decodable token from raw claims.
func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return signed
}

func TestDecode_FullClaims(t *testing.T) {
	token := mint(t, jwt.MapClaims{
		"user_id":     "u17",
		"first_name":  "Grace",
		"last_name":   "Hopper",
		"email":       "grace@school.example",
		"role":        "teacher",
		"school_id":   "s3",
		"school_name": "Navy Academy",
	})

	id, err := identity.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if id.ID != "u17" {
		t.Errorf("ID = %q, want u17", id.ID)
	}
	if id.FirstName != "Grace" || id.LastName != "Hopper" {
		t.Errorf("name = %q %q", id.FirstName, id.LastName)
	}
	if id.Email != "grace@school.example" {
		t.Errorf("Email = %q", id.Email)
	}
	if id.Role != campushub.RoleTeacher {
		t.Errorf("Role = %q, want teacher", id.Role)
	}
	if id.SchoolID != "s3" || id.SchoolName != "Navy Academy" {
		t.Errorf("school = %q %q", id.SchoolID, id.SchoolName)
	}
}

func TestDecode_NormalizesRole(t *testing.T) {
	token := mint(t, jwt.MapClaims{"user_id": "u1", "role": "Teacher"})

	id, err := identity.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if id.Role != campushub.RoleTeacher {
		t.Errorf("Role = %q, want %q", id.Role, campushub.RoleTeacher)
	}
}

func TestDecode_SubFallback(t *testing.T) {
	token := mint(t, jwt.MapClaims{"sub": "u9"})

	id, err := identity.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if id.ID != "u9" {
		t.Errorf("ID = %q, want u9", id.ID)
	}
}

func TestDecode_NumericUserID(t *testing.T) {
	// DRF serializes ids as numbers; JSON decoding yields float64.
	token := mint(t, jwt.MapClaims{"user_id": 42, "school_id": 7})

	id, err := identity.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if id.ID != "42" {
		t.Errorf("ID = %q, want 42", id.ID)
	}
	if id.SchoolID != "7" {
		t.Errorf("SchoolID = %q, want 7", id.SchoolID)
	}
}

func TestDecode_NameSplit(t *testing.T) {
	token := mint(t, jwt.MapClaims{"user_id": "u1", "name": "Ada Byron Lovelace"})

	id, err := identity.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if id.FirstName != "Ada" {
		t.Errorf("FirstName = %q, want Ada", id.FirstName)
	}
	if id.LastName != "Byron Lovelace" {
		t.Errorf("LastName = %q, want Byron Lovelace", id.LastName)
	}
}

func TestDecode_SplitFieldsWinOverName(t *testing.T) {
	token := mint(t, jwt.MapClaims{
		"user_id":    "u1",
		"first_name": "Grace",
		"last_name":  "Hopper",
		"name":       "Someone Else",
	})

	id, err := identity.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if id.FirstName != "Grace" || id.LastName != "Hopper" {
		t.Errorf("name = %q %q, want Grace Hopper", id.FirstName, id.LastName)
	}
}

func TestDecode_MissingUserID(t *testing.T) {
	token := mint(t, jwt.MapClaims{"email": "nobody@school.example"})

	if _, err := identity.Decode(token); err == nil {
		t.Fatal("expected error for payload without user id")
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, token := range []string{"", "not-a-token", "a.b", "x.y.z"} {
		if _, err := identity.Decode(token); err == nil {
			t.Errorf("Decode(%q) should fail", token)
		}
	}
}

func TestFromClaims_NilValues(t *testing.T) {
	id, err := identity.FromClaims(jwt.MapClaims{"user_id": "u1", "email": nil})
	if err != nil {
		t.Fatalf("FromClaims: %v", err)
	}
	if id.Email != "" {
		t.Errorf("Email = %q, want empty", id.Email)
	}
}
