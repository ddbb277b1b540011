package core

// IdentityStore holds the locally authenticated user of a session.
type IdentityStore struct {
	persister *Persister
}

func NewIdentityStore(p *Persister) *IdentityStore {
	return &IdentityStore{persister: p}
}

// Load returns the stored user, or nil when nobody is logged in.
func (s *IdentityStore) Load() *User {
	return Load[*User](s.persister, UserKey, nil)
}

func (s *IdentityStore) Save(u User) {
	s.persister.Save(UserKey, u)
}

func (s *IdentityStore) Clear() {
	s.persister.Delete(UserKey)
}
