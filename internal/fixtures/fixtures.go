// Package fixtures loads routes, vehicles and accounts from a YAML file into
// the in-memory store, so the server can run without Postgres.
package fixtures

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/pkordes/smartfare/internal/domain"
	"github.com/pkordes/smartfare/internal/repo/memstore"
)

// File is the YAML document layout.
type File struct {
	Routes   []Route   `yaml:"routes"`
	Vehicles []Vehicle `yaml:"vehicles"`
	Accounts []Account `yaml:"accounts"`
}

type Route struct {
	ID    string             `yaml:"id"`
	Name  string             `yaml:"name"`
	Stops []domain.RouteStop `yaml:"stops"`
}

// Vehicle refers to its route by name.
type Vehicle struct {
	ID           string `yaml:"id"`
	Registration string `yaml:"registration"`
	Route        string `yaml:"route"`
}

type Account struct {
	ID         string             `yaml:"id"`
	Kind       domain.AccountKind `yaml:"kind"`
	Name       string             `yaml:"name"`
	Email      string             `yaml:"email"`
	NIC        string             `yaml:"nic"`
	PassportID string             `yaml:"passport_id"`
	ManagerID  string             `yaml:"manager_id"`
	Balance    int64              `yaml:"balance"`
}

// Set is a decoded, validated fixture file.
type Set struct {
	Vehicles []domain.Vehicle
	Accounts []domain.Account
}

// LoadFile reads and decodes the fixture file at path.
func LoadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, fmt.Errorf("fixtures.LoadFile: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a fixture document. Unknown fields are rejected.
func Load(r io.Reader) (Set, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc File
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return Set{}, fmt.Errorf("fixtures.Load: decode: %w", err)
	}

	routes := make(map[string]domain.Route, len(doc.Routes))
	for i, r := range doc.Routes {
		id, err := parseID(r.ID)
		if err != nil {
			return Set{}, fmt.Errorf("fixtures.Load: routes[%d]: %w", i, err)
		}
		route := domain.Route{ID: id, Name: r.Name, Stops: r.Stops}
		if err := route.Validate(); err != nil {
			return Set{}, fmt.Errorf("fixtures.Load: route %q: %w", r.Name, err)
		}
		if _, dup := routes[r.Name]; dup {
			return Set{}, fmt.Errorf("fixtures.Load: route %q defined twice", r.Name)
		}
		routes[r.Name] = route
	}

	var out Set
	for i, v := range doc.Vehicles {
		id, err := parseID(v.ID)
		if err != nil {
			return Set{}, fmt.Errorf("fixtures.Load: vehicles[%d]: %w", i, err)
		}
		route, ok := routes[v.Route]
		if !ok {
			return Set{}, fmt.Errorf("fixtures.Load: vehicle %q: unknown route %q", v.Registration, v.Route)
		}
		out.Vehicles = append(out.Vehicles, domain.Vehicle{ID: id, Registration: v.Registration, Route: route})
	}

	for i, a := range doc.Accounts {
		id, err := parseID(a.ID)
		if err != nil {
			return Set{}, fmt.Errorf("fixtures.Load: accounts[%d]: %w", i, err)
		}
		switch a.Kind {
		case domain.AccountLocal, domain.AccountForeigner, domain.AccountManager:
		default:
			return Set{}, fmt.Errorf("fixtures.Load: account %q: unknown kind %q", a.Name, a.Kind)
		}
		out.Accounts = append(out.Accounts, domain.Account{
			ID:         id,
			Kind:       a.Kind,
			Name:       a.Name,
			Email:      a.Email,
			NIC:        a.NIC,
			PassportID: a.PassportID,
			ManagerID:  a.ManagerID,
			Balance:    a.Balance,
			History:    []uuid.UUID{},
		})
	}
	return out, nil
}

// Apply provisions every vehicle and account of s into store.
func (s Set) Apply(store *memstore.Store) error {
	for _, v := range s.Vehicles {
		if err := store.PutVehicle(v); err != nil {
			return fmt.Errorf("fixtures.Apply: %w", err)
		}
	}
	for _, a := range s.Accounts {
		if err := store.PutAccount(a); err != nil {
			return fmt.Errorf("fixtures.Apply: %w", err)
		}
	}
	return nil
}

// parseID parses s, or generates an id when s is empty.
func parseID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(s)
}
