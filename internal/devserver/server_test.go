package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/muurk/useradmin/internal/backend"
	"github.com/muurk/useradmin/internal/events"
)

const testToken = "dev-token"

func newTestServer(t *testing.T, token string) (*Server, *httptest.Server, *backend.Client) {
	t.Helper()
	srv, err := New(&Config{Token: token, Seed: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
	})

	client := backend.NewClient(ts.URL)
	client.SetToken(token)
	client.SetRetry(0, time.Millisecond)
	return srv, ts, client
}

func seededRefs(t *testing.T, c *backend.Client) (backend.Company, backend.Role) {
	t.Helper()
	companies, err := c.FetchCompanies(context.Background(), backend.SearchQuery("acme"))
	if err != nil || len(companies.Result) != 1 {
		t.Fatalf("FetchCompanies() = %v, %v", companies, err)
	}
	roles, err := c.FetchRoles(context.Background(), backend.SearchQuery("normal"))
	if err != nil || len(roles.Result) != 1 {
		t.Fatalf("FetchRoles() = %v, %v", roles, err)
	}
	return companies.Result[0], roles.Result[0]
}

func newPayload(company backend.Company, role backend.Role) *backend.UserPayload {
	return &backend.UserPayload{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "secret",
		Age:      36,
		Gender:   backend.GenderFemale,
		Address:  "London",
		Avatar:   "ada.png",
		Role:     role.ID,
		Company:  backend.Ref{ID: company.ID, Name: company.Name},
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	_, _, c := newTestServer(t, testToken)

	roles, err := c.FetchRoles(context.Background(), backend.SearchQuery("admin"))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, r := range roles.Result {
		names = append(names, r.Name)
	}
	if strings.Join(names, ",") != "SUPER_ADMIN,ADMIN" {
		t.Errorf("roles = %v", names)
	}
	if roles.Meta.PageSize != backend.SearchPageSize || roles.Meta.Total != 2 {
		t.Errorf("Meta = %+v", roles.Meta)
	}

	// Regex metacharacters typed by the operator are literal.
	none, err := c.FetchCompanies(context.Background(), backend.SearchQuery(".*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(none.Result) != 0 {
		t.Errorf("companies for %q = %v", ".*", none.Result)
	}

	all, err := c.FetchCompanies(context.Background(), backend.SearchQuery(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Result) != 6 {
		t.Errorf("companies for empty search = %d, want 6", len(all.Result))
	}
}

func TestCreateAndUpdateUser(t *testing.T) {
	srv, _, c := newTestServer(t, testToken)
	ctx := context.Background()
	company, role := seededRefs(t, c)

	created, err := c.CreateUser(ctx, newPayload(company, role))
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if created.ID == "" || len(created.ID) != 24 {
		t.Errorf("ID = %q", created.ID)
	}
	if created.Company == nil || created.Company.Name != "Acme Corporation" {
		t.Errorf("Company = %+v", created.Company)
	}
	if created.Role == nil || created.Role.Name != "NORMAL_USER" {
		t.Errorf("Role = %+v", created.Role)
	}
	if !srv.Store().CheckPassword(created.ID, "secret") {
		t.Error("password should be stored hashed and verifiable")
	}

	update := newPayload(company, role)
	update.ID = created.ID
	update.Password = ""
	update.Name = "Ada King"
	updated, err := c.UpdateUser(ctx, update)
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if updated.Name != "Ada King" {
		t.Errorf("Name = %q", updated.Name)
	}
	if !srv.Store().CheckPassword(created.ID, "secret") {
		t.Error("update must not change the password")
	}

	got, err := c.GetUser(ctx, created.ID)
	if err != nil || got.Name != "Ada King" {
		t.Errorf("GetUser() = %+v, %v", got, err)
	}

	page, err := c.FetchUsers(ctx, backend.PageQuery(1, 10, "king"))
	if err != nil {
		t.Fatal(err)
	}
	if page.Meta.Total != 1 || page.Result[0].ID != created.ID {
		t.Errorf("FetchUsers() = %+v", page)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	_, _, c := newTestServer(t, testToken)
	company, role := seededRefs(t, c)

	if _, err := c.CreateUser(context.Background(), newPayload(company, role)); err != nil {
		t.Fatal(err)
	}
	_, err := c.CreateUser(context.Background(), newPayload(company, role))
	if backend.StatusCode(err) != http.StatusBadRequest {
		t.Fatalf("error = %v, want 400", err)
	}
	if msg := backend.ServerMessage(err); !strings.Contains(msg, "already exists") {
		t.Errorf("ServerMessage = %q", msg)
	}
}

func TestCreateUser_ValidationMessages(t *testing.T) {
	_, _, c := newTestServer(t, testToken)
	company, role := seededRefs(t, c)

	p := newPayload(company, role)
	p.Email = "not-an-email"
	p.Password = ""
	_, err := c.CreateUser(context.Background(), p)

	want := "email must be an email; password should not be empty"
	if got := backend.ServerMessage(err); got != want {
		t.Errorf("ServerMessage = %q, want %q", got, want)
	}
}

func TestUpdateUser_UnknownID(t *testing.T) {
	_, _, c := newTestServer(t, testToken)
	company, role := seededRefs(t, c)

	p := newPayload(company, role)
	p.ID = "000000000000000000000000"
	_, err := c.UpdateUser(context.Background(), p)
	if backend.StatusCode(err) != http.StatusNotFound {
		t.Errorf("error = %v, want 404", err)
	}
}

func TestUploadAndServeImage(t *testing.T) {
	_, ts, c := newTestServer(t, testToken)

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	res, err := c.UploadSingleFile(context.Background(), &backend.FilePart{Name: "my avatar.png", Content: png}, "user")
	if err != nil {
		t.Fatalf("UploadSingleFile() error = %v", err)
	}
	if !strings.HasPrefix(res.FileName, "myavatar-") || !strings.HasSuffix(res.FileName, ".png") {
		t.Errorf("FileName = %q", res.FileName)
	}

	// Images are served without a token.
	resp, err := http.Get(c.ImageURL("user", res.FileName))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.Equal(body, png) {
		t.Errorf("GET image = %d, %d bytes", resp.StatusCode, len(body))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}

	missing, err := http.Get(ts.URL + "/images/user/nope.png")
	if err != nil {
		t.Fatal(err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing image status = %d", missing.StatusCode)
	}
}

func TestUpload_RejectsNonImage(t *testing.T) {
	_, _, c := newTestServer(t, testToken)

	_, err := c.UploadSingleFile(context.Background(),
		&backend.FilePart{Name: "a.png", ContentType: "image/png", Content: []byte("just text")}, "user")
	if backend.StatusCode(err) != http.StatusUnprocessableEntity {
		t.Errorf("error = %v, want 422", err)
	}
}

func TestUpload_RequiresFolderType(t *testing.T) {
	_, ts, _ := newTestServer(t, "")

	resp, err := http.Post(ts.URL+"/api/v1/files/upload", "multipart/form-data; boundary=x", strings.NewReader("--x--\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var env struct {
		StatusCode int             `json:"statusCode"`
		Message    backend.Message `json:"message"`
		Error      string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if env.StatusCode != http.StatusBadRequest || env.Error != "Bad Request" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestTokenRequired(t *testing.T) {
	_, ts, _ := newTestServer(t, testToken)

	anon := backend.NewClient(ts.URL)
	anon.SetRetry(0, time.Millisecond)
	_, err := anon.FetchRoles(context.Background(), backend.SearchQuery(""))
	if !backend.IsAuthError(err) {
		t.Errorf("error = %v, want auth error", err)
	}
}

func TestUnknownRoute(t *testing.T) {
	_, ts, _ := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/api/v1/nothing")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(string(body), "Cannot GET /api/v1/nothing") {
		t.Errorf("got %d %s", resp.StatusCode, body)
	}
}

func TestEventsPublishedOnSave(t *testing.T) {
	srv, ts, c := newTestServer(t, testToken)
	company, role := seededRefs(t, c)

	sub, err := events.NewSubscriber(ts.URL, testToken)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := sub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// The hub registers the subscriber after the handshake completes.
	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	created, err := c.CreateUser(context.Background(), newPayload(company, role))
	if err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-ch:
		if ev.Type != events.TypeUserCreated || ev.UserID != created.ID || ev.Name != "Ada Lovelace" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestListing_PageFarPastTheEnd(t *testing.T) {
	_, ts, _ := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/api/v1/companies?current=9223372036854775807&pageSize=2")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var env backend.Envelope[backend.Paginated[backend.Company]]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || len(env.Data.Result) != 0 || env.Data.Meta.Total != 6 {
		t.Errorf("got %d %+v", resp.StatusCode, env.Data)
	}
}

func TestUpdateUser_ClearsOptionalFields(t *testing.T) {
	_, _, c := newTestServer(t, testToken)
	ctx := context.Background()
	company, role := seededRefs(t, c)

	p := newPayload(company, role)
	p.Phone = "0123"
	created, err := c.CreateUser(ctx, p)
	if err != nil {
		t.Fatal(err)
	}

	update := newPayload(company, role)
	update.ID = created.ID
	update.Password = ""
	update.Phone = ""
	update.Age = 0
	update.Gender = ""
	updated, err := c.UpdateUser(ctx, update)
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if updated.Phone != "" || updated.Age != 0 || updated.Gender != "" {
		t.Errorf("updated = %+v, want cleared phone, age and gender", updated)
	}
}
