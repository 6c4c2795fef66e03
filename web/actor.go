package web

import (
	"encoding/json"

	"github.com/deemkeen/fedbridge/activitypub"
	"github.com/deemkeen/fedbridge/domain"
	"github.com/deemkeen/fedbridge/util"
)

// ActorStore is the slice of the database the actor document needs.
type ActorStore interface {
	GetOrCreateUser(userDomain string) (error, *domain.User)
}

// GetActor builds the AS2 Person document for a bridged domain. The
// first fetch of a new domain generates its keypair as a side effect,
// so the publicKey the follower sees is the one later deliveries are
// signed with.
func GetActor(userDomain string, conf *util.AppConfig, store ActorStore) (error, string) {
	err, user := store.GetOrCreateUser(userDomain)
	if err != nil {
		return err, "{}"
	}

	hostURL := conf.HostURL()
	actorURI := hostURL + userDomain

	actor := map[string]interface{}{
		"@context": []string{
			activitypub.ASContext,
			"https://w3id.org/security/v1",
		},
		"id":                        actorURI,
		"type":                      "Person",
		"preferredUsername":         userDomain,
		"name":                      userDomain,
		"url":                       activitypub.RedirectWrap("https://"+userDomain+"/", hostURL),
		"inbox":                     actorURI + "/inbox",
		"manuallyApprovesFollowers": false,
		"endpoints": map[string]interface{}{
			"sharedInbox": hostURL + "inbox",
		},
		"publicKey": map[string]interface{}{
			"id":           actorURI,
			"owner":        actorURI,
			"publicKeyPem": user.PublicKeyPem,
		},
	}

	jsonBytes, err := json.Marshal(actor)
	if err != nil {
		return err, "{}"
	}

	return nil, string(jsonBytes)
}
