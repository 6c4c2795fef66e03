package activitypub

import (
	"net/http"
	"time"

	"github.com/deemkeen/fedbridge/domain"
)

// Database defines the database operations required by the ActivityPub package.
// This interface allows for dependency injection and testing with mock implementations.
type Database interface {
	// User operations
	GetOrCreateUser(userDomain string) (error, *domain.User)
	ReadUser(userDomain string) (error, *domain.User)

	// Follower operations
	GetOrCreateFollower(dest string, src string, lastFollow string) (error, *domain.Follower)
	DeactivateFollower(dest string, src string) (error, bool)
	ReadFollower(dest string, src string) (error, *domain.Follower)
	ActiveFollowerSrcsByDest(dest string) (error, []string)

	// Activity log operations
	CreateActivity(activity *domain.Activity) error
}

// HTTPClient defines the HTTP client operations required by the ActivityPub package.
// This interface allows for dependency injection and testing with mock implementations.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ActorFetcher resolves a remote actor id to its actor document.
type ActorFetcher interface {
	Fetch(actorURI string) (*Actor, error)
}

// WebmentionSender gets the first shot at every inbound Create/Announce.
// It reports whether it delivered anything; only when it did not does the
// inbox fall through to the follower fan-out.
type WebmentionSender interface {
	Send(activity map[string]interface{}) (bool, error)
}

// DefaultHTTPClient is the default HTTP client used in production
type DefaultHTTPClient struct {
	client *http.Client
}

// NewDefaultHTTPClient creates a new default HTTP client with the specified timeout
func NewDefaultHTTPClient(timeout time.Duration) *DefaultHTTPClient {
	return &DefaultHTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Do executes the HTTP request
func (c *DefaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// NoopWebmentionSender never delivers anything; installed in production
// until outbound webmention dispatch lands here.
type NoopWebmentionSender struct{}

func (s *NoopWebmentionSender) Send(activity map[string]interface{}) (bool, error) {
	return false, nil
}
