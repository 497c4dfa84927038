package cache_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/goliatone/go-contact-cache/cache"
	"github.com/goliatone/go-contact-cache/pkg/testsupport"
)

type keyScenario struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Prefix      string    `json:"prefix"`
	Cases       []keyCase `json:"cases"`
}

type keyCase struct {
	Entity      string `json:"entity"`
	ID          string `json:"id"`
	ExpectedKey string `json:"expectedKey"`
}

type keyFixtures struct {
	Scenarios []keyScenario `json:"scenarios"`
}

func TestDefaultKeyStrategy_Fixtures(t *testing.T) {
	var fixtures keyFixtures
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("key_strategy_scenarios.json"), &fixtures)

	if len(fixtures.Scenarios) == 0 {
		t.Fatal("no scenarios loaded")
	}

	for _, scenario := range fixtures.Scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			strategy := cache.NewDefaultKeyStrategy(scenario.Prefix)
			for _, tc := range scenario.Cases {
				if got := strategy.Key(tc.Entity, tc.ID); got != tc.ExpectedKey {
					t.Errorf("Key(%q, %q) = %q, want %q", tc.Entity, tc.ID, got, tc.ExpectedKey)
				}
			}
		})
	}
}

func TestDefaultKeyStrategy_IdentifierTypes(t *testing.T) {
	strategy := cache.NewDefaultKeyStrategy("")
	id := uuid.MustParse("6F9619FF-8B86-D011-B42D-00C04FC964FF")
	n := 7

	tests := []struct {
		name string
		id   any
		want string
	}{
		{name: "uuid", id: id, want: "contact:6f9619ff-8b86-d011-b42d-00c04fc964ff"},
		{name: "uuid pointer", id: &id, want: "contact:6f9619ff-8b86-d011-b42d-00c04fc964ff"},
		{name: "int", id: 42, want: "contact:42"},
		{name: "int pointer", id: &n, want: "contact:7"},
		{name: "nil", id: nil, want: "contact:nil"},
		{name: "nil uuid pointer", id: (*uuid.UUID)(nil), want: "contact:nil"},
		{name: "bytes", id: []byte{0xCA, 0xFE}, want: "contact:cafe"},
		{name: "bool", id: true, want: "contact:true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strategy.Key("Contact", tt.id); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultKeyStrategy_Stability(t *testing.T) {
	strategy := cache.NewDefaultKeyStrategy("crm:")
	id := uuid.New()

	first := strategy.Key("contact", id)
	for i := 0; i < 10; i++ {
		if got := cache.NewDefaultKeyStrategy("crm:").Key("contact", id); got != first {
			t.Fatalf("key changed between strategy instances: %q != %q", got, first)
		}
	}

	if other := strategy.Key("contact", uuid.New()); other == first {
		t.Fatalf("distinct identifiers produced the same key %q", first)
	}
	if branch := strategy.Key("branch", id); branch == first {
		t.Fatalf("distinct entities produced the same key %q", first)
	}
}

func TestKeyStrategies_SeparatorInEntity(t *testing.T) {
	strategies := map[string]cache.KeyStrategy{
		"plain":  cache.NewDefaultKeyStrategy("crm:"),
		"hashed": cache.NewHashedKeyStrategy("crm:"),
	}

	pairs := []struct {
		name    string
		entityA string
		idA     string
		entityB string
		idB     string
	}{
		{name: "separator moved into entity", entityA: "a:b", idA: "c", entityB: "a", idB: "b:c"},
		{name: "escaped form in entity", entityA: "a%3ab", idA: "c", entityB: "a:b", idB: "c"},
		{name: "trailing separator", entityA: "a:", idA: "b", entityB: "a", idB: ":b"},
	}

	for name, strategy := range strategies {
		for _, p := range pairs {
			t.Run(name+"/"+p.name, func(t *testing.T) {
				a := strategy.Key(p.entityA, p.idA)
				b := strategy.Key(p.entityB, p.idB)
				if a == b {
					t.Fatalf("Key(%q, %q) and Key(%q, %q) both produced %q", p.entityA, p.idA, p.entityB, p.idB, a)
				}
			})
		}
	}

	if got := cache.NewDefaultKeyStrategy("").Key("a:b", "c"); got != "a%3ab:c" {
		t.Errorf("expected the entity separator to be encoded, got %q", got)
	}
}

func TestHashedKeyStrategy(t *testing.T) {
	strategy := cache.NewHashedKeyStrategy("CRM:")
	id := "6F9619FF-8B86-D011-B42D-00C04FC964FF"

	key := strategy.Key("Contact", id)
	if !strings.HasPrefix(key, "crm:contact:") {
		t.Fatalf("expected crm:contact: prefix, got %q", key)
	}

	digest := strings.TrimPrefix(key, "crm:contact:")
	if len(digest) == 0 || len(digest) > 16 {
		t.Fatalf("expected a 64 bit hex digest, got %q", digest)
	}
	if strings.ToLower(digest) != digest {
		t.Errorf("digest must be lowercase, got %q", digest)
	}

	if got := strategy.Key("contact", strings.ToLower(id)); got != key {
		t.Errorf("identifier case must not change the key: %q != %q", got, key)
	}
	if got := strategy.Key("contact", "another"); got == key {
		t.Errorf("distinct identifiers produced the same key %q", got)
	}
}

func TestKeyStrategyByName(t *testing.T) {
	plain := cache.KeyStrategyByName("plain", "").Key("contact", "abc")
	if plain != "contact:abc" {
		t.Errorf("plain strategy produced %q", plain)
	}

	fallback := cache.KeyStrategyByName("", "").Key("contact", "abc")
	if fallback != plain {
		t.Errorf("empty name should select the plain strategy, got %q", fallback)
	}

	hashed := cache.KeyStrategyByName("hashed", "").Key("contact", "abc")
	if hashed == plain || !strings.HasPrefix(hashed, "contact:") {
		t.Errorf("hashed strategy produced %q", hashed)
	}
}

type ContactEntity struct{}

type page[T any] struct{}

func TestEntityName(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{name: "struct", v: ContactEntity{}, want: "contact_entity"},
		{name: "pointer", v: &ContactEntity{}, want: "contact_entity"},
		{name: "generic", v: page[int]{}, want: "page"},
		{name: "uuid", v: uuid.UUID{}, want: "uuid"},
		{name: "nil", v: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cache.EntityName(tt.v); got != tt.want {
				t.Errorf("EntityName() = %q, want %q", got, tt.want)
			}
		})
	}
}
