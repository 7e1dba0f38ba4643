package models

import "fmt"

// Scope identifies which corpus an index store covers: the shared global
// corpus or one user's private corpus.
type Scope struct {
	userID string
}

// GlobalScope returns the scope of the shared corpus.
func GlobalScope() Scope {
	return Scope{}
}

// UserScope returns the scope of one user's private corpus.
func UserScope(userID string) Scope {
	return Scope{userID: userID}
}

// IsGlobal reports whether the scope is the shared corpus.
func (s Scope) IsGlobal() bool {
	return s.userID == ""
}

// UserID returns the owning user ID, or "" for the global scope.
func (s Scope) UserID() string {
	return s.userID
}

// ArtifactName returns the persisted artifact filename for the scope.
// The names match what the platform's trainer writes: the shared corpus
// goes to stem_embeddings.json, each user corpus to user_<id>_embeddings.json.
func (s Scope) ArtifactName() string {
	if s.IsGlobal() {
		return "stem_embeddings.json"
	}
	return fmt.Sprintf("user_%s_embeddings.json", s.userID)
}

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "user:" + s.userID
}
