package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-contact-cache/contacts"
)

const (
	adaLovelace  = "1c1f5d6a-0000-4000-8000-000000000001"
	manchesterID = "8d6b0f9e-3c53-4b0a-9d9c-6f0f0b9c2a01"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CRMCACHE_DATABASE_SEED_FILE", "testdata/seed.json")
	t.Setenv("CRMCACHE_LOGGING_LEVEL", "error")
}

func TestRun_Get(t *testing.T) {
	setupEnv(t)
	var out bytes.Buffer

	if err := run(context.Background(), []string{"get", adaLovelace}, &out); err != nil {
		t.Fatalf("run() failed: %v", err)
	}

	var got contacts.Contact
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not a contact: %v\n%s", err, out.String())
	}
	if got.LastName != "Lovelace" {
		t.Errorf("unexpected contact %+v", got)
	}
}

func TestRun_GetMissing(t *testing.T) {
	setupEnv(t)
	err := run(context.Background(), []string{"get", "1c1f5d6a-0000-4000-8000-0000000000ff"}, &bytes.Buffer{})
	if !errors.Is(err, errNotFound) {
		t.Errorf("expected errNotFound, got %v", err)
	}
}

func TestRun_Find(t *testing.T) {
	setupEnv(t)
	var out bytes.Buffer

	if err := run(context.Background(), []string{"find", "-first", "ada", "-ignore-case"}, &out); err != nil {
		t.Fatalf("run() failed: %v", err)
	}

	var got []contacts.Contact
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not a contact list: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 contacts, got %d", len(got))
	}
}

func TestRun_Create(t *testing.T) {
	setupEnv(t)
	var out bytes.Buffer

	args := []string{"create", "-title", "Dr", "-first", "Katherine", "-last", "Johnson", "-branch", manchesterID}
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	if !strings.Contains(out.String(), `"last_name": "Johnson"`) {
		t.Errorf("unexpected output %s", out.String())
	}
}

func TestRun_CreateInvalid(t *testing.T) {
	setupEnv(t)
	args := []string{"create", "-first", "Katherine", "-last", "Johnson", "-branch", manchesterID}
	if err := run(context.Background(), args, &bytes.Buffer{}); !errors.Is(err, contacts.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestRun_Branch(t *testing.T) {
	setupEnv(t)
	var out bytes.Buffer

	if err := run(context.Background(), []string{"branch", manchesterID}, &out); err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	var got contacts.Branch
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not a branch: %v", err)
	}
	if got.Name != "Manchester" || len(got.ContactIDs) != 2 {
		t.Errorf("unexpected branch %+v", got)
	}
}

func TestRun_Metrics(t *testing.T) {
	setupEnv(t)
	var out bytes.Buffer

	if err := run(context.Background(), []string{"-metrics", "get", adaLovelace}, &out); err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	if !strings.Contains(out.String(), "crmcache_cache_misses_total") {
		t.Errorf("expected metrics in output, got %s", out.String())
	}
}

func TestRun_Errors(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"delete", adaLovelace}},
		{"bad id", []string{"get", "not-a-uuid"}},
		{"missing id", []string{"branch"}},
		{"bad branch", []string{"create", "-title", "Dr", "-first", "A", "-last", "B", "-branch", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(context.Background(), tt.args, &bytes.Buffer{}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
