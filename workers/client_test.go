package workers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeCloudflare is an in-memory stand-in for the Workers management API.
type fakeCloudflare struct {
	scripts        map[string]string // name -> code
	modified       map[string]string // name -> modified_on
	subdomain      string
	subdomainCalls int // subdomain-enable POSTs received
}

func newFakeCloudflare() *fakeCloudflare {
	return &fakeCloudflare{
		scripts:   map[string]string{},
		modified:  map[string]string{},
		subdomain: "testaccount",
	}
}

func (f *fakeCloudflare) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/accounts/acct/workers/subdomain", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"success":true,"errors":[],"result":{"subdomain":%q}}`, f.subdomain)
	})

	mux.HandleFunc("/accounts/acct/workers/scripts", func(w http.ResponseWriter, r *http.Request) {
		type entry struct {
			ID         string `json:"id"`
			ModifiedOn string `json:"modified_on"`
		}
		entries := []entry{}
		for name := range f.scripts {
			entries = append(entries, entry{ID: name, ModifiedOn: f.modified[name]})
		}
		payload, _ := json.Marshal(entries)
		fmt.Fprintf(w, `{"success":true,"errors":[],"result":%s}`, payload)
	})

	mux.HandleFunc("/accounts/acct/workers/scripts/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/accounts/acct/workers/scripts/")
		parts := strings.Split(rest, "/")
		name := parts[0]

		switch {
		case len(parts) == 2 && parts[1] == "subdomain" && r.Method == "POST":
			f.subdomainCalls++
			// Enablement failures must be swallowed by the client.
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"success":false,"errors":[{"code":10000,"message":"enable failed"}]}`)

		case len(parts) == 2 && parts[1] == "content" && r.Method == "GET":
			code, ok := f.scripts[name]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"success":false,"errors":[{"code":10007,"message":"workers.api.error.script_not_found"}]}`)
				return
			}
			w.Header().Set("Content-Type", "application/javascript")
			fmt.Fprint(w, code)

		case len(parts) == 1 && r.Method == "PUT":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("script upload was not multipart: %v", err)
			}
			metadata := r.FormValue("metadata")
			if !strings.Contains(metadata, "main_module") || !strings.Contains(metadata, "compatibility_date") {
				t.Errorf("metadata missing required fields: %s", metadata)
			}
			file, _, err := r.FormFile(mainModuleName)
			if err != nil {
				t.Errorf("missing module part: %v", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			code, _ := io.ReadAll(file)
			f.scripts[name] = string(code)
			f.modified[name] = "2025-08-01T12:00:00Z"
			fmt.Fprintf(w, `{"success":true,"errors":[],"result":{"id":%q}}`, name)

		case len(parts) == 1 && r.Method == "DELETE":
			if _, ok := f.scripts[name]; !ok {
				fmt.Fprint(w, `{"success":false,"errors":[{"code":10007,"message":"workers.api.error.script_not_found"}]}`)
				return
			}
			delete(f.scripts, name)
			fmt.Fprint(w, `{"success":true,"errors":[],"result":null}`)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	return mux
}

func newTestClient(t *testing.T, fake *fakeCloudflare) *Client {
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	return &Client{
		AccountID: "acct",
		APIToken:  "test-token",
		BaseURL:   server.URL,
	}
}

func TestCreateReadRoundTrip(t *testing.T) {
	fake := newFakeCloudflare()
	client := newTestClient(t, fake)

	code := `export default { async fetch() { return new Response("hi"); } }`
	msg, err := client.CreateOrUpdate("demo-fn", code)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg, "demo-fn") {
		t.Errorf("success message should name the worker, got %q", msg)
	}

	got, err := client.ReadSource("demo-fn")
	if err != nil {
		t.Fatal(err)
	}
	if got != code {
		t.Errorf("round trip mismatch: submitted %q, read back %q", code, got)
	}
}

func TestCreateSwallowsSubdomainEnableFailure(t *testing.T) {
	fake := newFakeCloudflare()
	client := newTestClient(t, fake)

	// The fake always fails the enablement call; the deploy must still succeed.
	if _, err := client.CreateOrUpdate("demo-fn", "export default {}"); err != nil {
		t.Fatalf("deploy failed because of the best-effort call: %v", err)
	}
	if fake.subdomainCalls != 1 {
		t.Errorf("expected exactly one enablement attempt, got %d", fake.subdomainCalls)
	}
}

func TestReadSourceNotFoundIncludesStatus(t *testing.T) {
	client := newTestClient(t, newFakeCloudflare())

	_, err := client.ReadSource("missing")
	if err == nil {
		t.Fatal("expected an error for a missing script")
	}
	var apiErr *RemoteAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected RemoteAPIError, got %T", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", apiErr.Status)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error message should include the numeric status, got %q", err.Error())
	}
}

func TestListEmpty(t *testing.T) {
	client := newTestClient(t, newFakeCloudflare())

	listing, err := client.List()
	if err != nil {
		t.Fatal(err)
	}
	if listing != "No workers found." {
		t.Errorf("expected literal empty-account message, got %q", listing)
	}
}

func TestListEntries(t *testing.T) {
	fake := newFakeCloudflare()
	fake.scripts["alpha"] = "a"
	fake.modified["alpha"] = "2025-07-01T00:00:00Z"
	fake.scripts["beta"] = "b"
	fake.modified["beta"] = "2025-07-02T00:00:00Z"
	client := newTestClient(t, fake)

	listing, err := client.List()
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(listing, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per worker, got %d lines: %q", len(lines), listing)
	}
	if !strings.Contains(listing, "alpha") || !strings.Contains(listing, "2025-07-01T00:00:00Z") {
		t.Errorf("listing should include id and modified timestamp, got %q", listing)
	}
}

func TestDeleteMissingWorkerReportsPlatformError(t *testing.T) {
	client := newTestClient(t, newFakeCloudflare())

	_, err := client.Delete("missing")
	if err == nil {
		t.Fatal("expected platform-reported failure")
	}
	var apiErr *RemoteAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected RemoteAPIError, got %T", err)
	}
	if !strings.Contains(apiErr.Payload, "script_not_found") {
		t.Errorf("error should carry the platform payload, got %q", apiErr.Payload)
	}
}

func TestDelete(t *testing.T) {
	fake := newFakeCloudflare()
	fake.scripts["demo-fn"] = "code"
	client := newTestClient(t, fake)

	msg, err := client.Delete("demo-fn")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg, "demo-fn") {
		t.Errorf("confirmation should name the worker, got %q", msg)
	}
	if _, ok := fake.scripts["demo-fn"]; ok {
		t.Error("worker should be gone after delete")
	}
}

func TestInvokeWithoutSubdomainFailsBeforeHTTPCall(t *testing.T) {
	fake := newFakeCloudflare()
	fake.subdomain = ""
	client := newTestClient(t, fake)

	invoked := false
	orig := workerHost
	workerHost = func(name, subdomain string) string {
		invoked = true
		return orig(name, subdomain)
	}
	defer func() { workerHost = orig }()

	_, err := client.Invoke("demo-fn", "GET", "/", "", nil)
	if err == nil {
		t.Fatal("expected ConfigurationError")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
	if invoked {
		t.Error("no worker HTTP call may be attempted without a subdomain")
	}
}

func TestInvokeAttachesBodyOnlyForMutatingMethods(t *testing.T) {
	fake := newFakeCloudflare()
	client := newTestClient(t, fake)

	var gotMethod, gotBody, gotHeader string
	workerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotHeader = r.Header.Get("X-Custom")
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "worker says hi")
	}))
	defer workerServer.Close()

	orig := workerHost
	workerHost = func(name, subdomain string) string { return workerServer.URL }
	defer func() { workerHost = orig }()

	// GET: the body argument must be dropped.
	out, err := client.Invoke("demo-fn", "GET", "/", `{"ignored":true}`, map[string]string{"X-Custom": "yes"})
	if err != nil {
		t.Fatal(err)
	}
	if gotMethod != "GET" || gotBody != "" {
		t.Errorf("GET should carry no body, got method=%s body=%q", gotMethod, gotBody)
	}
	if gotHeader != "yes" {
		t.Errorf("custom header not forwarded, got %q", gotHeader)
	}
	if !strings.Contains(out, "Status: 200") {
		t.Errorf("formatted response should include the status, got %q", out)
	}
	if !strings.Contains(out, "Content-Type: text/plain") {
		t.Errorf("formatted response should include headers, got %q", out)
	}
	if !strings.Contains(out, "worker says hi") {
		t.Errorf("formatted response should include the raw body, got %q", out)
	}

	// POST: the body goes through untouched.
	if _, err := client.Invoke("demo-fn", "post", "/submit", `{"x":1}`, nil); err != nil {
		t.Fatal(err)
	}
	if gotMethod != "POST" || gotBody != `{"x":1}` {
		t.Errorf("POST should carry the body, got method=%s body=%q", gotMethod, gotBody)
	}
}
