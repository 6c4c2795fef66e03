package activitypub

const (
	ContentType = "application/activity+json"
	ASContext   = "https://www.w3.org/ns/activitystreams"

	// PublicAudience marks an activity as addressed to the world.
	PublicAudience = "https://www.w3.org/ns/activitystreams#Public"
)

// supportedTypes is the closed set of activity and object types the
// bridge recognizes. Anything else is answered with 501; Like is
// recognized but the inbox still refuses it.
var supportedTypes = map[string]bool{
	"Accept":   true,
	"Announce": true,
	"Article":  true,
	"Audio":    true,
	"Create":   true,
	"Delete":   true,
	"Follow":   true,
	"Image":    true,
	"Like":     true,
	"Note":     true,
	"Undo":     true,
	"Video":    true,
}

func IsSupportedType(activityType string) bool {
	return supportedTypes[activityType]
}

// IsPublic reports whether an activity is addressed to the public
// collection, checking to/cc on the activity itself and on its embedded
// object. Mastodon abbreviates the collection as "Public" or
// "as:Public" in some payloads.
func IsPublic(activity map[string]interface{}) bool {
	if hasPublicAudience(activity) {
		return true
	}
	if obj, ok := activity["object"].(map[string]interface{}); ok {
		return hasPublicAudience(obj)
	}
	return false
}

func hasPublicAudience(obj map[string]interface{}) bool {
	for _, field := range []string{"to", "cc"} {
		for _, audience := range asList(obj[field]) {
			if audience == PublicAudience || audience == "as:Public" || audience == "Public" {
				return true
			}
		}
	}
	return false
}

func asList(val interface{}) []string {
	switch v := val.(type) {
	case string:
		return []string{v}
	case []interface{}:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// objectID extracts the id from an AS2 value that may be a bare URI
// string or an embedded object.
func objectID(val interface{}) string {
	switch obj := val.(type) {
	case string:
		return obj
	case map[string]interface{}:
		if id, ok := obj["id"].(string); ok {
			return id
		}
	}
	return ""
}
