package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator joins the entity and identifier segments of a key.
const KeySeparator = ":"

// entityEscaper encodes the separator inside entity names so distinct
// (entity, id) pairs never render to the same key.
var entityEscaper = strings.NewReplacer("%", "%25", KeySeparator, "%3a")

// KeyStrategy maps an entity type and identifier to a cache key.
// Implementations must be pure and produce the same key across process restarts.
type KeyStrategy interface {
	Key(entity string, id any) string
}

// defaultKeyStrategy renders keys as lower(prefix + entity + ":" + id), with
// any ":" in entity percent encoded.
type defaultKeyStrategy struct {
	prefix string
}

// NewDefaultKeyStrategy returns the plain key strategy. The prefix is used as a
// namespace, e.g. "crm:".
func NewDefaultKeyStrategy(prefix string) KeyStrategy {
	return &defaultKeyStrategy{prefix: prefix}
}

func (s *defaultKeyStrategy) Key(entity string, id any) string {
	return strings.ToLower(s.prefix + entityEscaper.Replace(entity) + KeySeparator + serializeID(id))
}

// hashedKeyStrategy replaces the identifier segment with its xxhash64 digest so
// that keys stay short for backends with key length limits.
type hashedKeyStrategy struct {
	prefix string
}

// NewHashedKeyStrategy returns a key strategy that hashes identifiers.
func NewHashedKeyStrategy(prefix string) KeyStrategy {
	return &hashedKeyStrategy{prefix: prefix}
}

func (s *hashedKeyStrategy) Key(entity string, id any) string {
	sum := xxhash.Sum64String(strings.ToLower(serializeID(id)))
	return strings.ToLower(s.prefix+entityEscaper.Replace(entity)) + KeySeparator + strconv.FormatUint(sum, 16)
}

// KeyStrategyByName resolves a strategy from its configuration name.
// "hashed" selects the hashed strategy, anything else the default one.
func KeyStrategyByName(name, prefix string) KeyStrategy {
	if name == "hashed" {
		return NewHashedKeyStrategy(prefix)
	}
	return NewDefaultKeyStrategy(prefix)
}

// serializeID renders an identifier deterministically.
func serializeID(v any) string {
	if v == nil {
		return "nil"
	}

	if s, ok := v.(fmt.Stringer); ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return "nil"
		}
		return s.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return serializeID(rv.Elem().Interface())
	case reflect.String:
		return rv.String()
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%v", v)
	case reflect.Slice:
		if b, ok := v.([]byte); ok {
			return hex.EncodeToString(b)
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%s:%v", reflect.TypeOf(v).String(), v)
	}
	return string(data)
}
