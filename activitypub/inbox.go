package activitypub

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/deemkeen/fedbridge/db"
	"github.com/deemkeen/fedbridge/domain"
	"github.com/deemkeen/fedbridge/util"
	"github.com/google/uuid"
)

// HandleInbox processes incoming ActivityPub activities for a bridged
// domain. userDomain is empty on the shared inbox; the Follow handlers
// then derive it from the followee URL.
func HandleInbox(w http.ResponseWriter, r *http.Request, userDomain string, conf *util.AppConfig) {
	HandleInboxWithDeps(w, r, userDomain, conf,
		db.GetDB(),
		NewHTTPActorFetcher(nil),
		&NoopWebmentionSender{},
		NewDefaultHTTPClient(30*time.Second))
}

func HandleInboxWithDeps(w http.ResponseWriter, r *http.Request, userDomain string, conf *util.AppConfig,
	database Database, fetcher ActorFetcher, webmention WebmentionSender, client HTTPClient) {

	// Read request body
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Inbox: Failed to read body: %v", err)
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Parse activity
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		log.Printf("Inbox: Failed to parse activity: %v", err)
		http.Error(w, "Invalid activity", http.StatusBadRequest)
		return
	}

	// Unwrap our own redirect URLs before looking at anything else
	activity, ok := RedirectUnwrap(raw, conf.HostURL()).(map[string]interface{})
	if !ok {
		http.Error(w, "Invalid activity", http.StatusBadRequest)
		return
	}

	activityType, _ := activity["type"].(string)
	if activityType == "" {
		log.Printf("Inbox: Activity without a type")
		http.Error(w, "Invalid activity: missing type", http.StatusBadRequest)
		return
	}

	log.Printf("Inbox: Received %s from %s", activityType, objectID(activity["actor"]))

	if !IsSupportedType(activityType) || activityType == "Like" {
		// Like stays unsupported: there is nothing to translate it into
		// on the webmention side without a like-of target page.
		err := &domain.UnsupportedActivityError{Type: activityType}
		log.Printf("Inbox: %v", err)
		http.Error(w, "Sorry, "+activityType+" activities are not supported yet.", statusForError(err))
		return
	}

	switch activityType {
	case "Follow":
		status, err := handleFollow(activity, body, userDomain, conf, database, fetcher, webmention, client)
		if err != nil {
			log.Printf("Inbox: Failed to handle Follow: %v", err)
			http.Error(w, "Failed to process Follow", status)
			return
		}
		w.WriteHeader(status)

	case "Undo":
		if err := handleUndo(activity, userDomain, database); err != nil {
			log.Printf("Inbox: Failed to handle Undo: %v", err)
			http.Error(w, "Failed to process Undo", statusForError(err))
			return
		}
		w.WriteHeader(http.StatusOK)

	case "Delete":
		// Deliberate no-op: fanning a Delete out to every bridged
		// domain that ever saw the object is not worth the scan yet.
		log.Printf("Inbox: Ignoring Delete from %s", objectID(activity["actor"]))
		w.WriteHeader(http.StatusOK)

	case "Accept":
		// Confirmation of one of our own outbound follows; nothing to do
		log.Printf("Inbox: Accept received from %s", objectID(activity["actor"]))
		w.WriteHeader(http.StatusOK)

	default:
		// Create, Announce and bare objects (Article, Note, ...)
		if err := handleObject(activity, activityType, database, webmention); err != nil {
			log.Printf("Inbox: Failed to handle %s: %v", activityType, err)
			http.Error(w, "Failed to process "+activityType, statusForError(err))
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// handleFollow resolves the remote actor, stores (or reactivates) the
// follower relationship, answers with a signed Accept and forwards the
// Follow to the followee's site. The Accept delivery's status is the
// request's status.
func handleFollow(activity map[string]interface{}, body []byte, userDomain string, conf *util.AppConfig,
	database Database, fetcher ActorFetcher, webmention WebmentionSender, client HTTPClient) (int, error) {

	followee := objectID(activity["object"])
	actorURI := objectID(activity["actor"])
	followID := objectID(activity["id"])

	if followee == "" || actorURI == "" || followID == "" {
		return http.StatusBadRequest, &domain.ValidationError{Reason: "Follow needs id, actor and object"}
	}

	if userDomain == "" {
		userDomain = util.DomainFromLink(followee)
	}
	if userDomain == "" {
		return http.StatusBadRequest, &domain.ValidationError{Reason: "could not determine followed domain"}
	}

	actor, err := fetcher.Fetch(actorURI)
	if err != nil {
		return http.StatusBadGateway, err
	}

	err, user := database.GetOrCreateUser(userDomain)
	if err != nil {
		return http.StatusInternalServerError, &domain.StorageError{Op: "get-or-create user", Err: err}
	}

	err, _ = database.GetOrCreateFollower(userDomain, actorURI, string(body))
	if err != nil {
		return http.StatusInternalServerError, &domain.StorageError{Op: "get-or-create follower", Err: err}
	}

	log.Printf("Inbox: %s now follows %s", actorURI, userDomain)

	status, err := SendAccept(user, actor, activity, conf, client)
	if err != nil {
		if status == 0 {
			status = http.StatusBadGateway
		}
		return status, err
	}

	// Let the followee's site know about its new follower. The follow
	// is already accepted, so a failed forward must not fail the request.
	if _, err := webmention.Send(activity); err != nil {
		log.Printf("Inbox: Webmention forward of Follow failed: %v", err)
	}

	return status, nil
}

// handleUndo deactivates the follower relationship named by an
// Undo-of-Follow. Undoing an unknown follow is a no-op.
func handleUndo(activity map[string]interface{}, userDomain string, database Database) error {
	obj, ok := activity["object"].(map[string]interface{})
	if !ok {
		log.Printf("Inbox: Undo without an embedded object, ignoring")
		return nil
	}

	objType, _ := obj["type"].(string)
	if objType != "Follow" {
		log.Printf("Inbox: Ignoring Undo of %s", objType)
		return nil
	}

	followee := objectID(obj["object"])
	actorURI := objectID(obj["actor"])
	if actorURI == "" {
		actorURI = objectID(activity["actor"])
	}

	dest := userDomain
	if dest == "" {
		dest = util.DomainFromLink(followee)
	}
	if dest == "" || actorURI == "" {
		return &domain.ValidationError{Reason: "Undo of Follow needs actor and object"}
	}

	err, updated := database.DeactivateFollower(dest, actorURI)
	if err != nil {
		return &domain.StorageError{Op: "deactivate follower", Err: err}
	}
	if !updated {
		log.Printf("Inbox: Undo for unknown follower %s of %s, ignoring", actorURI, dest)
		return nil
	}

	log.Printf("Inbox: %s unfollowed %s", actorURI, dest)
	return nil
}

// handleObject runs the content path: first offer the activity to the
// webmention side, then, for public Creates and Announces nothing was
// sent for, fan out to the actor's followers and log the activity.
func handleObject(activity map[string]interface{}, activityType string,
	database Database, webmention WebmentionSender) error {

	sent, err := webmention.Send(activity)
	if err != nil {
		log.Printf("Inbox: Webmention attempt failed: %v", err)
	}
	if sent {
		return nil
	}

	if activityType != "Create" && activityType != "Announce" {
		return nil
	}

	if !IsPublic(activity) {
		log.Printf("Inbox: %s is not public, skipping fan-out", objectID(activity["id"]))
		return nil
	}

	actorURI := objectID(activity["actor"])
	if actorURI == "" {
		return &domain.ValidationError{Reason: activityType + " needs an actor"}
	}

	err, srcs := database.ActiveFollowerSrcsByDest(actorURI)
	if err != nil {
		return &domain.StorageError{Op: "query followers", Err: err}
	}

	// The log keeps the unwrapped rendition, not the wire bytes
	bodyJSON, err := json.Marshal(activity)
	if err != nil {
		return &domain.ValidationError{Reason: "activity does not marshal"}
	}

	source := objectID(activity["url"])
	if source == "" {
		source = objectID(activity["id"])
	}

	record := &domain.Activity{
		Id:        uuid.New(),
		Direction: domain.DirectionIn,
		Protocol:  domain.ProtocolActivityPub,
		Source:    source,
		Target:    PublicAudience,
		Domains:   srcs,
		Body:      string(bodyJSON),
		Status:    domain.StatusComplete,
		CreatedAt: time.Now(),
	}

	if err := database.CreateActivity(record); err != nil {
		return &domain.StorageError{Op: "log activity", Err: err}
	}

	log.Printf("Inbox: Logged %s from %s for %d domain(s)", activityType, actorURI, len(srcs))
	return nil
}

func statusForError(err error) int {
	var validation *domain.ValidationError
	var unsupported *domain.UnsupportedActivityError
	var fetch *domain.UpstreamFetchError
	var delivery *domain.DeliveryError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unsupported):
		return http.StatusNotImplemented
	case errors.As(err, &fetch):
		return http.StatusBadGateway
	case errors.As(err, &delivery):
		if delivery.StatusCode > 0 {
			return delivery.StatusCode
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
