//go:build database

package integration

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/internal/repostore"
	"github.com/huangsam/buildwatch/internal/repostore/storetest"
	"github.com/huangsam/buildwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startContainer starts req and returns the host and mapped port of exposedPort.
func startContainer(t *testing.T, req testcontainers.ContainerRequest, exposedPort string) (string, int) {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, nat.Port(exposedPort))
	require.NoError(t, err)
	return host, port.Int()
}

// storeEnv exposes a store config through BUILDWATCH_DB_* overrides.
func storeEnv(sc contract.StoreConfig) map[string]string {
	return map[string]string{
		"BUILDWATCH_DB_BACKEND":         string(sc.Backend),
		"BUILDWATCH_DB_HOST":            sc.Host,
		"BUILDWATCH_DB_PORT":            strconv.Itoa(sc.Port),
		"BUILDWATCH_DB_AUTH_DB_NAME":    sc.AuthDBName,
		"BUILDWATCH_DB_DB_NAME":         sc.DBName,
		"BUILDWATCH_DB_COLLECTION_NAME": sc.CollectionName,
		"BUILDWATCH_DB_USERNAME":        sc.Username,
		"BUILDWATCH_DB_PASSWORD":        sc.Password,
	}
}

// exerciseBackend runs the store suite against sc, then the CLI end to end.
func exerciseBackend(t *testing.T, sc contract.StoreConfig) {
	ctx := context.Background()

	t.Run("conformance", func(t *testing.T) {
		storetest.RunConformance(t, func(t *testing.T) contract.RepoStore {
			s, err := repostore.Open(ctx, sc)
			require.NoError(t, err)
			require.NoError(t, s.Clear(ctx))
			t.Cleanup(func() { _ = s.Close() })
			return s
		})
	})

	t.Run("cli", func(t *testing.T) {
		dir := workspace(t)
		write(t, filepath.Join(dir, "database-config.json"), `{}`)
		env := storeEnv(sc)

		_, err := runCommand(t, dir, env, "db", "clear")
		require.NoError(t, err)
		_, err = runCommand(t, dir, env, "repo", "add", "foo/bar")
		require.NoError(t, err)
		_, err = runCommand(t, dir, env, "repo", "update", "foo/bar", "--makefiles", "makefiles.json")
		require.NoError(t, err)

		out, err := runCommand(t, dir, env, "db", "status")
		require.NoError(t, err)
		assert.Contains(t, out, "Compiled: 1")

		_, err = runCommand(t, dir, env, "analyze", "compile.log", "--sample-size", "2")
		require.NoError(t, err)
		records := readReportFile(t, filepath.Join(dir, "repo_samples.csv"))
		assert.ElementsMatch(t, expectedRows, records[1:])
	})
}

// TestStoreWithMySQL runs the store against a MySQL container.
func TestStoreWithMySQL(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "ghcc",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}, "3306")

	exerciseBackend(t, contract.StoreConfig{
		Backend: schema.MySQLBackend, Host: host, Port: port,
		AuthDBName: "ghcc", DBName: "ghcc", CollectionName: "repos",
		Username: "root", Password: "secret123",
	})
}

// TestStoreWithPostgres runs the store against a PostgreSQL container.
func TestStoreWithPostgres(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "secret123",
			"POSTGRES_DB":       "ghcc",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}, "5432")

	exerciseBackend(t, contract.StoreConfig{
		Backend: schema.PostgreSQLBackend, Host: host, Port: port,
		AuthDBName: "ghcc", DBName: "ghcc", CollectionName: "repos",
		Username: "postgres", Password: "secret123",
	})
}

// TestStoreWithMongo runs the store against a MongoDB container.
func TestStoreWithMongo(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		Env: map[string]string{
			"MONGO_INITDB_ROOT_USERNAME": "root",
			"MONGO_INITDB_ROOT_PASSWORD": "secret123",
		},
		WaitingFor: wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
	}, "27017")

	exerciseBackend(t, contract.StoreConfig{
		Backend: schema.MongoBackend, Host: host, Port: port,
		AuthDBName: "admin", DBName: "ghcc", CollectionName: "repos",
		Username: "root", Password: "secret123",
	})
}
