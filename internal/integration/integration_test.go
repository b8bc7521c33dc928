package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"case-reasons-training/internal/app"
	"case-reasons-training/internal/auth"
	"case-reasons-training/internal/domain"
	"case-reasons-training/internal/infra/postgres"
	pgmigrations "case-reasons-training/internal/infra/postgres/migrations"
	infraredis "case-reasons-training/internal/infra/redis"
	"case-reasons-training/internal/narrator"
	"case-reasons-training/internal/taxonomy"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

const taxonomyCSV = `Case Reason 1 (mandatory),Case Reason 2 (mandatory),Case Reason 3 (optional),Definition / Notes
Billing,Refund,,Customer wants money back for a cancelled visit
,,Duplicate Charge,Customer was charged twice for the same booking
,Invoice,,Customer needs an invoice with tax id
Account,Login,,
,,Password Reset,Doctor cannot reset the password
`

func TestConcurrentCompletionsEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateLeaderboard(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	tax, err := taxonomy.Parse(strings.NewReader(taxonomyCSV))
	if err != nil {
		t.Fatalf("parse taxonomy: %v", err)
	}
	byMessage := make(map[string]domain.Choice)
	for _, sc := range tax.Scenarios() {
		byMessage[narrator.FallbackText(sc.Description)] = domain.Choice{Reason1: sc.Reason1, Reason2: sc.Reason2, Reason3: sc.Reason3}
	}

	service := app.NewQuizService(
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		postgres.NewLeaderboardStore(pool),
		tax,
		app.Options{Narrator: infraredis.NewNarrationCache(redisClient, narrator.Fallback{}, time.Minute)},
	)

	players := []string{"Alice", "Bob", "Carla", "Dawid"}
	var wg sync.WaitGroup
	errs := make(chan error, len(players))
	for _, name := range players {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			errs <- playToEnd(ctx, service, name, byMessage)
		}(name)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("play: %v", err)
		}
	}

	top, err := service.Leaderboard(ctx, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(top) != len(players) {
		t.Fatalf("expected %d rows, got %+v", len(players), top)
	}
	for _, e := range top {
		if e.Score != 40 || e.Tier != 1 {
			t.Fatalf("unexpected row %+v", e)
		}
	}
}

func playToEnd(ctx context.Context, service *app.QuizService, name string, byMessage map[string]domain.Choice) error {
	view, err := service.Login(ctx, auth.Credentials{Name: name, Country: "Poland"})
	if err != nil {
		return err
	}
	for {
		choice, ok := byMessage[view.Message]
		if !ok {
			return fmt.Errorf("unknown message %q", view.Message)
		}
		if _, err := service.SubmitAnswer(ctx, view.SessionID, choice); err != nil {
			return err
		}
		next, done, err := service.Advance(ctx, view.SessionID)
		if err != nil {
			return err
		}
		if done != nil {
			if !done.Synced {
				return fmt.Errorf("%s not synced: %s", name, done.Warning)
			}
			return nil
		}
		view = next
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "training", "POSTGRES_PASSWORD": "trainingpass", "POSTGRES_DB": "training"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://training:trainingpass@%s:%s/training?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateLeaderboard(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
