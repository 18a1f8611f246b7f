//go:build integration

package database_test

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/database"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/instrumentation"
)

type order struct {
	gorm.Model
	Customer string
	Total    int
}

type postgresContainer struct {
	testcontainers.Container
	Connection database.Connection
}

func setupPostgresContainer(ctx context.Context) (*postgresContainer, error) {
	port, err := getFreePort()
	if err != nil {
		return nil, fmt.Errorf("could not get free port: %w", err)
	}

	req := testcontainers.ContainerRequest{
		Image: "postgres:15",
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		ExposedPorts: []string{"5432/tcp"},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = nat.PortMap{
				"5432/tcp": []nat.PortBinding{{HostPort: fmt.Sprintf("%d", port)}},
			}
		},
		// postgres restarts once after initdb
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	mapped, err := c.MappedPort(ctx, "5432")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	return &postgresContainer{
		Container: c,
		Connection: database.Connection{
			Host:     host,
			Port:     mapped.Port(),
			User:     "testuser",
			Password: "testpass",
			DbName:   "testdb",
			SSLMode:  "disable",
		},
	}, nil
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// queryRecorder collects the query text of every traced statement.
type queryRecorder struct {
	mu      sync.Mutex
	queries []string
}

func (r *queryRecorder) register(hooks *hook.Registry) {
	hooks.Register(database.HookClass, database.OpExecute, nil,
		func(ctx context.Context, call hook.Call, _ any, _ any, _ error) {
			if s, ok := call.Receiver.(database.Statement); ok {
				r.mu.Lock()
				r.queries = append(r.queries, s.QueryString())
				r.mu.Unlock()
			}
		})
}

func (r *queryRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func TestStatementsAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	pg, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	defer func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	for _, driver := range []string{database.DriverPQ, database.DriverPGX} {
		t.Run(driver, func(t *testing.T) {
			rec := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
			hooks := hook.NewRegistry(nil)
			instrumentation.New(instrumentation.Config{}, hooks, tp, nil).Register()
			queries := &queryRecorder{}
			queries.register(hooks)

			conn := pg.Connection
			conn.Driver = driver
			client, err := database.NewClient(database.Config{Connection: conn}, hooks, nil)
			require.NoError(t, err)
			defer func() { _ = client.GracefulShutdown() }()

			table := "orders_" + driver
			_, err = client.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (id serial PRIMARY KEY, customer text)", table))
			require.NoError(t, err)

			stmt, err := client.Prepare(ctx, fmt.Sprintf("INSERT INTO %s (customer) VALUES ($1)", table))
			require.NoError(t, err)
			_, err = stmt.Execute(ctx, "ada")
			require.NoError(t, err)
			require.NoError(t, stmt.Close())

			_, err = client.Exec(ctx, "SELECT * FROM missing_table")
			require.Error(t, err)

			db := client.Gorm(ctx).Table(table + "_gorm")
			require.NoError(t, db.AutoMigrate(&order{}))
			require.NoError(t, client.Gorm(ctx).Table(table+"_gorm").Create(&order{Customer: "grace", Total: 42}).Error)

			var found []order
			require.NoError(t, client.Gorm(ctx).Table(table+"_gorm").Where("customer = ?", "grace").Find(&found).Error)
			require.Len(t, found, 1)

			got := queries.all()
			assert.Contains(t, got, fmt.Sprintf("CREATE TABLE %s (id serial PRIMARY KEY, customer text)", table))
			assert.Contains(t, got, fmt.Sprintf("INSERT INTO %s (customer) VALUES ($1)", table))
			assert.Contains(t, got, "SELECT * FROM missing_table")

			var gormSelect bool
			for _, q := range got {
				if strings.HasPrefix(q, fmt.Sprintf(`SELECT * FROM "%s_gorm" WHERE customer = $1`, table)) {
					gormSelect = true
				}
			}
			assert.True(t, gormSelect, "gorm select not traced: %v", got)

			var failed int
			for _, s := range rec.Ended() {
				assert.Equal(t, "Statement execute", s.Name())
				if len(s.Events()) > 0 {
					failed++
				}
			}
			assert.GreaterOrEqual(t, failed, 1)
		})
	}
}
