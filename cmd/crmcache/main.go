// Command crmcache reads and writes contacts through the resilient cache.
//
//	crmcache [-config file] [-metrics] get <contact-id>
//	crmcache [-config file] create -title T -first F -last L -branch <branch-id>
//	crmcache [-config file] find [-first F] [-last L] [-partial] [-ignore-case] [-or]
//	crmcache [-config file] branch <branch-id>
//
// Settings come from the config file and CRMCACHE_ environment variables.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/common/expfmt"

	"github.com/goliatone/go-contact-cache/config"
	"github.com/goliatone/go-contact-cache/contacts"
	"github.com/goliatone/go-contact-cache/pkg/di"
)

var errNotFound = errors.New("not found")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "crmcache: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("crmcache", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	dumpMetrics := fs.Bool("metrics", false, "print metrics after the command")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("missing command: get, create, find or branch")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	container, err := di.NewContainer(ctx, *cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	svc := container.Service()
	command, rest := fs.Arg(0), fs.Args()[1:]

	var result any
	switch command {
	case "get":
		result, err = getContact(ctx, svc, rest)
	case "create":
		result, err = createContact(ctx, svc, rest)
	case "find":
		result, err = findContacts(ctx, svc, rest)
	case "branch":
		result, err = getBranch(ctx, svc, rest)
	default:
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return err
	}

	if err := writeJSON(stdout, result); err != nil {
		return err
	}
	if *dumpMetrics && container.Metrics() != nil {
		return writeMetrics(stdout, container)
	}
	return nil
}

func getContact(ctx context.Context, svc *contacts.Service, args []string) (*contacts.Contact, error) {
	id, err := parseIDArg(args)
	if err != nil {
		return nil, err
	}
	c, err := svc.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("contact %s: %w", id, errNotFound)
	}
	return c, nil
}

func createContact(ctx context.Context, svc *contacts.Service, args []string) (*contacts.Contact, error) {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	title := fs.String("title", "", "contact title")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	branch := fs.String("branch", "", "branch id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	branchID, err := uuid.Parse(*branch)
	if err != nil {
		return nil, fmt.Errorf("invalid branch id %q: %w", *branch, err)
	}

	return svc.CreateContact(ctx, contacts.CreateContactInput{
		Title:     *title,
		FirstName: *first,
		LastName:  *last,
		BranchID:  branchID,
	})
}

func findContacts(ctx context.Context, svc *contacts.Service, args []string) ([]*contacts.Contact, error) {
	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	var q contacts.NameQuery
	fs.StringVar(&q.FirstName, "first", "", "first name")
	fs.StringVar(&q.LastName, "last", "", "last name")
	fs.BoolVar(&q.Partial, "partial", false, "match substrings")
	fs.BoolVar(&q.IgnoreCase, "ignore-case", false, "ignore case")
	matchAny := fs.Bool("or", false, "match either name instead of both")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *matchAny {
		q.Condition = contacts.MatchAny
	}

	return svc.FindContactsByName(ctx, q)
}

func getBranch(ctx context.Context, svc *contacts.Service, args []string) (*contacts.Branch, error) {
	id, err := parseIDArg(args)
	if err != nil {
		return nil, err
	}
	b, err := svc.GetBranch(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("branch %s: %w", id, errNotFound)
	}
	return b, nil
}

func parseIDArg(args []string) (uuid.UUID, error) {
	if len(args) != 1 {
		return uuid.Nil, errors.New("expected exactly one id")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", args[0], err)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeMetrics(w io.Writer, container *di.Container) error {
	families, err := container.Metrics().Registry().Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
