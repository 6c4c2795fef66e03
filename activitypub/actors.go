package activitypub

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deemkeen/fedbridge/domain"
)

// Actor represents the JSON structure of an ActivityPub actor
type Actor struct {
	Context           interface{} `json:"@context"`
	ID                string      `json:"id"`
	Type              string      `json:"type"`
	PreferredUsername string      `json:"preferredUsername"`
	Name              string      `json:"name"`
	Inbox             string      `json:"inbox"`
	Endpoints         struct {
		SharedInbox string `json:"sharedInbox"`
	} `json:"endpoints"`
	PublicKey struct {
		ID           string `json:"id"`
		Owner        string `json:"owner"`
		PublicKeyPem string `json:"publicKeyPem"`
	} `json:"publicKey"`
}

// HTTPActorFetcher resolves actors over plain HTTP with the AS2 accept
// header. No caching; every inbound Follow pays one fetch.
type HTTPActorFetcher struct {
	client HTTPClient
}

func NewHTTPActorFetcher(client HTTPClient) *HTTPActorFetcher {
	if client == nil {
		client = NewDefaultHTTPClient(10 * time.Second)
	}
	return &HTTPActorFetcher{client: client}
}

func (f *HTTPActorFetcher) Fetch(actorURI string) (*Actor, error) {
	req, err := http.NewRequest("GET", actorURI, nil)
	if err != nil {
		return nil, &domain.UpstreamFetchError{URL: actorURI, Err: err}
	}

	req.Header.Set("Accept", ContentType)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.UpstreamFetchError{URL: actorURI, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.UpstreamFetchError{URL: actorURI, Err: fmt.Errorf("actor fetch failed with status: %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamFetchError{URL: actorURI, Err: err}
	}

	var actor Actor
	if err := json.Unmarshal(body, &actor); err != nil {
		return nil, &domain.UpstreamFetchError{URL: actorURI, Err: fmt.Errorf("failed to parse actor JSON: %w", err)}
	}

	// Validate required fields
	if actor.ID == "" || actor.Inbox == "" {
		return nil, &domain.UpstreamFetchError{URL: actorURI, Err: fmt.Errorf("actor missing required fields")}
	}

	return &actor, nil
}
