package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"testbuilder/internal/db"
	"testbuilder/internal/domain"
	"testbuilder/internal/events"
	"testbuilder/internal/migrate"
	"testbuilder/internal/ready"
	"testbuilder/internal/repo"
	testbuildersdk "testbuilder/sdk/go"
)

const testSecret = "test-secret"

const testManifest = `build-type: test-program
source:
- testsuites/validation/ts-model-0.c
- testsuites/validation/tr-chains-0.c
`

func newTestServer(t *testing.T) (*testbuildersdk.Client, string) {
	t.Helper()
	workdir := t.TempDir()
	manifestPath := filepath.Join(workdir, "model-0.yml")
	if err := os.WriteFile(manifestPath, []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	conn, err := db.Open(db.Config{Workdir: workdir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	w := events.Writer{DB: conn}
	if _, err := w.Record(context.Background(), "generate", "chains", domain.RunOK, ""); err != nil {
		t.Fatal(err)
	}
	handler, err := New(Config{
		Workdir:      workdir,
		ManifestPath: manifestPath,
		Repo:         repo.Repo{DB: conn},
		BasePath:     "/v0",
		Auth:         AuthConfig{JWTSecret: testSecret},
	})
	if err != nil {
		t.Fatal(err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	client := testbuildersdk.New("http://" + ln.Addr().String() + "/v0")
	client.BearerToken = signToken(t)
	return client, workdir
}

func signToken(t *testing.T) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "tester",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestHealthNeedsNoAuth(t *testing.T) {
	client, _ := newTestServer(t)
	client.BearerToken = ""
	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestAuthRequired(t *testing.T) {
	client, _ := newTestServer(t)
	client.BearerToken = ""
	_, err := client.Status(context.Background())
	apiErr, ok := err.(*testbuildersdk.APIError)
	if !ok || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	client.BearerToken = "garbage"
	_, err = client.Manifest(context.Background())
	apiErr, ok = err.(*testbuildersdk.APIError)
	if !ok || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestStatusAndManifest(t *testing.T) {
	client, _ := newTestServer(t)
	ctx := context.Background()
	st, err := client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Sources != 2 || st.Runs != 1 {
		t.Fatalf("status = %+v", st)
	}
	m, err := client.Manifest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"testsuites/validation/tr-chains-0.c",
		"testsuites/validation/ts-model-0.c",
	}
	if !reflect.DeepEqual(m.Source, want) {
		t.Fatalf("manifest = %v", m.Source)
	}
}

func TestRuns(t *testing.T) {
	client, _ := newTestServer(t)
	runs, err := client.Runs(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Verb != "generate" || runs[0].Model != "chains" {
		t.Fatalf("runs = %v", runs)
	}
}

func TestReadiness(t *testing.T) {
	client, workdir := newTestServer(t)
	ctx := context.Background()
	r, err := client.Readiness(ctx, "chains")
	if err != nil {
		t.Fatal(err)
	}
	if r.Ready || len(r.Missing) != 5 {
		t.Fatalf("readiness = %+v", r)
	}
	for _, in := range ready.Inputs("chains") {
		if err := os.WriteFile(filepath.Join(workdir, in.Name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	r, err = client.Readiness(ctx, "chains")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Ready || len(r.Missing) != 0 {
		t.Fatalf("readiness = %+v", r)
	}
}
