package devserver

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/muurk/useradmin/internal/backend"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique field is already taken
	ErrConflict = errors.New("already exists")
)

// storedFile is one uploaded file.
type storedFile struct {
	ContentType string
	Data        []byte
}

// Store holds every document of the development backend in memory.
type Store struct {
	mu sync.RWMutex

	users     []*backend.User
	passwords map[string][]byte // bcrypt hashes by user id
	companies []backend.Company
	roles     []backend.Role
	files     map[string]storedFile // keyed by "<category>/<name>"

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		passwords: make(map[string][]byte),
		files:     make(map[string]storedFile),
		now:       time.Now,
	}
}

// Seed adds the demo companies and roles.
func (s *Store) Seed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range []string{"Acme Corporation", "Globex", "Initech", "Umbrella", "Hooli", "Stark Industries"} {
		s.companies = append(s.companies, backend.Company{
			ID:      newObjectID(),
			Name:    name,
			Address: "1 " + strings.Fields(name)[0] + " Way",
		})
	}
	for _, r := range []struct{ name, desc string }{
		{"SUPER_ADMIN", "Full access"},
		{"ADMIN", "Manages users and companies"},
		{"HR", "Manages users of one company"},
		{"NORMAL_USER", "Default role for new users"},
	} {
		s.roles = append(s.roles, backend.Role{ID: newObjectID(), Name: r.name, Description: r.desc, IsActive: true})
	}
}

// Companies lists companies whose name matches filter.
func (s *Store) Companies(filter *NameFilter) []backend.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]backend.Company, 0, len(s.companies))
	for _, c := range s.companies {
		if filter.Match(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

// Roles lists roles whose name matches filter.
func (s *Store) Roles(filter *NameFilter) []backend.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]backend.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if filter.Match(r.Name) {
			out = append(out, r)
		}
	}
	return out
}

// Users lists users whose name matches filter, most recently updated first.
func (s *Store) Users(filter *NameFilter) []backend.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]backend.User, 0, len(s.users))
	for _, u := range s.users {
		if filter.Match(u.Name) {
			out = append(out, *u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(*out[j].UpdatedAt)
	})
	return out
}

// User returns the user with id.
func (s *Store) User(id string) (*backend.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.findUser(id)
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

// CreateUser stores a new user. The email must be unused.
func (s *Store) CreateUser(p *backend.UserPayload) (*backend.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findEmail(p.Email, "") != nil {
		return nil, fmt.Errorf("email %s: %w", p.Email, ErrConflict)
	}
	role, company, err := s.resolveRefs(p)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	u := &backend.User{
		ID:        newObjectID(),
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	applyPayload(u, p, role, company)

	s.users = append(s.users, u)
	s.passwords[u.ID] = hash

	cp := *u
	return &cp, nil
}

// UpdateUser replaces the fields of an existing user. The password is never
// changed here.
func (s *Store) UpdateUser(id string, p *backend.UserPayload) (*backend.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findUser(id)
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if s.findEmail(p.Email, id) != nil {
		return nil, fmt.Errorf("email %s: %w", p.Email, ErrConflict)
	}
	role, company, err := s.resolveRefs(p)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u.UpdatedAt = &now
	applyPayload(u, p, role, company)

	cp := *u
	return &cp, nil
}

// CheckPassword reports whether password matches the stored hash of user id.
func (s *Store) CheckPassword(id, password string) bool {
	s.mu.RLock()
	hash, ok := s.passwords[id]
	s.mu.RUnlock()
	return ok && bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// SaveFile stores an uploaded file.
func (s *Store) SaveFile(category, name, contentType string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[category+"/"+name] = storedFile{ContentType: contentType, Data: data}
}

// File returns an uploaded file.
func (s *Store) File(category, name string) (storedFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[category+"/"+name]
	return f, ok
}

func (s *Store) findUser(id string) *backend.User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Store) findEmail(email, exceptID string) *backend.User {
	for _, u := range s.users {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

// resolveRefs looks up the role and company a payload points at.
func (s *Store) resolveRefs(p *backend.UserPayload) (*backend.Ref, *backend.Ref, error) {
	var role *backend.Ref
	for _, r := range s.roles {
		if r.ID == p.Role {
			role = &backend.Ref{ID: r.ID, Name: r.Name}
		}
	}
	if role == nil {
		return nil, nil, fmt.Errorf("role %s: %w", p.Role, ErrNotFound)
	}

	var company *backend.Ref
	for _, c := range s.companies {
		if c.ID == p.Company.ID {
			company = &backend.Ref{ID: c.ID, Name: c.Name}
		}
	}
	if company == nil {
		return nil, nil, fmt.Errorf("company %s: %w", p.Company.ID, ErrNotFound)
	}
	return role, company, nil
}

func applyPayload(u *backend.User, p *backend.UserPayload, role, company *backend.Ref) {
	u.Name = p.Name
	u.Email = p.Email
	u.Phone = p.Phone
	u.Age = p.Age
	u.Gender = p.Gender
	u.Address = p.Address
	u.Avatar = p.Avatar
	u.Role = role
	u.Company = company
}

// newObjectID returns a 24 hex character id shaped like a MongoDB ObjectId.
func newObjectID() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:24]
}
