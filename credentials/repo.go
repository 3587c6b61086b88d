package credentials

// Storage keys. All three live in the same namespace and are cleared together.
const (
	KeyAccessToken  = "accessToken"
	KeyAuthUser     = "authUser"
	KeyAuthProvider = "authProvider"
)

// SessionKeys lists every key owned by a session.
var SessionKeys = []string{KeyAccessToken, KeyAuthUser, KeyAuthProvider}

// Backend is a durable key/value storage medium.
// Get returns errors.ErrKeyNotFound for a missing key. A Put or Delete that
// touches several keys must apply all of them or none.
type Backend interface {
	Get(key string) (string, error)
	Put(entries map[string]string) error
	Delete(keys ...string) error
}
