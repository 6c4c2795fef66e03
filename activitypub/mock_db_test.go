package activitypub

import (
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/deemkeen/fedbridge/domain"
	"github.com/deemkeen/fedbridge/util"
)

// MockDatabase is an in-memory mock implementation of the Database interface for testing.
// It stores data in maps and provides full CRUD operations without requiring a real database.
type MockDatabase struct {
	mu sync.RWMutex

	Users      map[string]*domain.User
	Followers  map[string]*domain.Follower
	Activities []*domain.Activity

	// Error injection for testing error handling
	ForceError error
}

// NewMockDatabase creates a new mock database with initialized maps
func NewMockDatabase() *MockDatabase {
	return &MockDatabase{
		Users:     make(map[string]*domain.User),
		Followers: make(map[string]*domain.Follower),
	}
}

// SetForceError sets an error to be returned by all operations
func (m *MockDatabase) SetForceError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ForceError = err
}

// AddFollower seeds a follower relationship
func (m *MockDatabase) AddFollower(follower *domain.Follower) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Followers[follower.Key()] = follower
}

func (m *MockDatabase) GetOrCreateUser(userDomain string) (error, *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	if user, ok := m.Users[userDomain]; ok {
		return nil, user
	}
	keypair := util.GeneratePemKeypair()
	user := &domain.User{
		Domain:        userDomain,
		PublicKeyPem:  keypair.Public,
		PrivateKeyPem: keypair.Private,
		CreatedAt:     time.Now(),
	}
	m.Users[userDomain] = user
	return nil, user
}

func (m *MockDatabase) ReadUser(userDomain string) (error, *domain.User) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	user, ok := m.Users[userDomain]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, user
}

func (m *MockDatabase) GetOrCreateFollower(dest string, src string, lastFollow string) (error, *domain.Follower) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	key := domain.FollowerKey(dest, src)
	if follower, ok := m.Followers[key]; ok {
		follower.Status = domain.FollowerActive
		follower.LastFollow = lastFollow
		follower.UpdatedAt = time.Now()
		return nil, follower
	}
	follower := &domain.Follower{
		Dest:       dest,
		Src:        src,
		Status:     domain.FollowerActive,
		LastFollow: lastFollow,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	m.Followers[key] = follower
	return nil, follower
}

func (m *MockDatabase) DeactivateFollower(dest string, src string) (error, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError, false
	}
	follower, ok := m.Followers[domain.FollowerKey(dest, src)]
	if !ok {
		return nil, false
	}
	follower.Status = domain.FollowerInactive
	follower.UpdatedAt = time.Now()
	return nil, true
}

func (m *MockDatabase) ReadFollower(dest string, src string) (error, *domain.Follower) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	follower, ok := m.Followers[domain.FollowerKey(dest, src)]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, follower
}

func (m *MockDatabase) ActiveFollowerSrcsByDest(dest string) (error, []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	var srcs []string
	for _, follower := range m.Followers {
		if follower.Dest == dest && follower.Status == domain.FollowerActive {
			srcs = append(srcs, follower.Src)
		}
	}
	return nil, srcs
}

func (m *MockDatabase) CreateActivity(activity *domain.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Activities = append(m.Activities, activity)
	return nil
}

// MockActorFetcher returns a canned actor document, or an error.
type MockActorFetcher struct {
	Actor   *Actor
	Err     error
	Fetched []string
}

func (f *MockActorFetcher) Fetch(actorURI string) (*Actor, error) {
	f.Fetched = append(f.Fetched, actorURI)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Actor, nil
}

// MockWebmentionSender records the activities offered to it.
type MockWebmentionSender struct {
	Sent     bool
	Err      error
	Received []map[string]interface{}
}

func (s *MockWebmentionSender) Send(activity map[string]interface{}) (bool, error) {
	s.Received = append(s.Received, activity)
	return s.Sent, s.Err
}

// MockHTTPClient answers every request with a fixed status and records
// the requests it saw.
type MockHTTPClient struct {
	StatusCode int
	Err        error
	Requests   []*http.Request
}

func (c *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.Requests = append(c.Requests, req)
	if c.Err != nil {
		return nil, c.Err
	}
	status := c.StatusCode
	if status == 0 {
		status = http.StatusAccepted
	}
	return &http.Response{
		StatusCode: status,
		Body:       http.NoBody,
		Header:     make(http.Header),
	}, nil
}
