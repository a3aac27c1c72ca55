package bootstrap

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/storefront/config"
	"github.com/kbukum/storefront/httpapi"
	"github.com/kbukum/storefront/migrations"
)

// Capability is a set of infrastructure a service variant depends on.
type Capability uint8

const (
	// Datastore opens the relational datastore and applies migrations.
	Datastore Capability = 1 << iota
	// Broker subscribes a consumer to the message broker.
	Broker
	// ConsumeMessages runs the drain loop alongside the HTTP server.
	// It requires Broker.
	ConsumeMessages
)

// Has reports whether every capability in other is set.
func (c Capability) Has(other Capability) bool { return c&other == other }

func (c Capability) String() string {
	var names []string
	for _, known := range []struct {
		bit  Capability
		name string
	}{
		{Datastore, "datastore"},
		{Broker, "broker"},
		{ConsumeMessages, "consume"},
	} {
		if c.Has(known.bit) {
			names = append(names, known.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// Required keys of the auth and catalog services.
const (
	AuthServerKey      config.Key = "AUTH_SERVER"
	AuthDatabaseKey    config.Key = "AUTH_DATABASE_URL"
	CatalogServerKey   config.Key = "CATALOG_SERVER"
	CatalogDatabaseKey config.Key = "CATALOG_DATABASE_URL"
	KafkaGroupKey      config.Key = "KAFKA_GROUP_ID"
	KafkaBrokerKey     config.Key = "KAFKA_BROKER"
)

const defaultMigrationDir = "."

// Variant declares one service: its required keys, its capabilities and
// the collaborators plugged into the sequence.
type Variant struct {
	Name         string
	Capabilities Capability

	// ServerKey holds the host:port to bind.
	ServerKey config.Key
	// DatabaseKey holds the datastore URL. Required with Datastore.
	DatabaseKey config.Key
	// GroupKey and BrokerKey hold the consumer group and the broker
	// address list. Required with Broker.
	GroupKey  config.Key
	BrokerKey config.Key

	// Migrations is the version-ordered schema set, rooted at MigrationsPath.
	Migrations     fs.FS
	MigrationsPath string

	// Router builds the public routes for a service name and version.
	Router func(service, version string) func(*gin.Engine)
}

// Auth is the auth service: datastore only.
func Auth() Variant {
	return Variant{
		Name:         "auth",
		Capabilities: Datastore,
		ServerKey:    AuthServerKey,
		DatabaseKey:  AuthDatabaseKey,
		Migrations:   migrations.Auth(),
		Router:       httpapi.Routes,
	}
}

// Catalog is the catalog service: datastore, broker and the drain loop.
func Catalog() Variant {
	return Variant{
		Name:         "catalog",
		Capabilities: Datastore | Broker | ConsumeMessages,
		ServerKey:    CatalogServerKey,
		DatabaseKey:  CatalogDatabaseKey,
		GroupKey:     KafkaGroupKey,
		BrokerKey:    KafkaBrokerKey,
		Migrations:   migrations.Catalog(),
		Router:       httpapi.Routes,
	}
}

// Keys returns the required keys in declaration order: server, database,
// broker group, broker address.
func (v Variant) Keys() config.Keys {
	names := []string{string(v.ServerKey)}
	if v.Capabilities.Has(Datastore) {
		names = append(names, string(v.DatabaseKey))
	}
	if v.Capabilities.Has(Broker) {
		names = append(names, string(v.GroupKey), string(v.BrokerKey))
	}
	return config.NewKeys(names...)
}

// Validate checks that every declared capability has the keys and
// collaborators it needs.
func (v Variant) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("variant name is required")
	}
	if v.ServerKey == "" {
		return fmt.Errorf("variant %s: server key is required", v.Name)
	}
	if v.Capabilities.Has(Datastore) {
		if v.DatabaseKey == "" {
			return fmt.Errorf("variant %s: datastore capability needs a database key", v.Name)
		}
		if v.Migrations == nil {
			return fmt.Errorf("variant %s: datastore capability needs a migration set", v.Name)
		}
	}
	if v.Capabilities.Has(Broker) && (v.GroupKey == "" || v.BrokerKey == "") {
		return fmt.Errorf("variant %s: broker capability needs group and broker keys", v.Name)
	}
	if v.Capabilities.Has(ConsumeMessages) && !v.Capabilities.Has(Broker) {
		return fmt.Errorf("variant %s: consuming messages requires the broker capability", v.Name)
	}
	return nil
}

func (v Variant) migrationsPath() string {
	if v.MigrationsPath == "" {
		return defaultMigrationDir
	}
	return v.MigrationsPath
}
