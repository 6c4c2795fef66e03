package activitypub

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/deemkeen/fedbridge/domain"
	"github.com/deemkeen/fedbridge/util"
)

// SendActivityWithDeps delivers an activity to a remote inbox, signed
// with the sending domain's key. Exactly one attempt is made; the
// caller decides what a failure means. Returns the remote status code
// alongside any error so Accept deliveries can pass it through.
func SendActivityWithDeps(activity interface{}, inboxURI string, user *domain.User, conf *util.AppConfig, client HTTPClient) (int, error) {
	// Marshal activity to JSON
	activityJSON, err := json.Marshal(activity)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal activity: %w", err)
	}

	// Calculate digest for HTTP signature
	hash := sha256.Sum256(activityJSON)
	digest := "SHA-256=" + base64.StdEncoding.EncodeToString(hash[:])

	// Create HTTP request
	req, err := http.NewRequest("POST", inboxURI, bytes.NewReader(activityJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("Accept", ContentType)
	req.Header.Set("User-Agent", util.GetNameAndVersion())
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Host", req.URL.Host)
	req.Header.Set("Digest", digest)

	// Parse private key for signing
	privateKey, err := ParsePrivateKey(user.PrivateKeyPem)
	if err != nil {
		return 0, fmt.Errorf("failed to parse private key: %w", err)
	}

	// Sign request; the key id is the bridge actor URL of the sending domain
	keyID := conf.HostURL() + user.Domain
	if err := SignRequest(req, privateKey, keyID); err != nil {
		return 0, fmt.Errorf("failed to sign request: %w", err)
	}

	// Send request
	resp, err := client.Do(req)
	if err != nil {
		return 0, &domain.DeliveryError{InboxURL: inboxURI, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &domain.DeliveryError{InboxURL: inboxURI, StatusCode: resp.StatusCode}
	}

	log.Printf("Outbox: Sent %T to %s (status: %d)", activity, inboxURI, resp.StatusCode)
	return resp.StatusCode, nil
}

// SendAccept sends an Accept activity in response to a Follow.
func SendAccept(user *domain.User, actor *Actor, follow map[string]interface{}, conf *util.AppConfig, client HTTPClient) (int, error) {
	followID := objectID(follow["id"])
	actorURI := conf.HostURL() + user.Domain

	accept := map[string]interface{}{
		"@context": ASContext,
		"id":       util.TagURI(conf.Conf.Domain, fmt.Sprintf("accept/%s/%s", user.Domain, followID)),
		"type":     "Accept",
		"actor":    actorURI,
		"object": map[string]interface{}{
			"id":     followID,
			"type":   "Follow",
			"actor":  actor.ID,
			"object": actorURI,
		},
	}

	return SendActivityWithDeps(accept, actor.Inbox, user, conf, client)
}
