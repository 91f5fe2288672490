// internal/download/rows_test.go
package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	xerrors "github.com/valpere/DataRetriever/internal/errors"
	"github.com/valpere/DataRetriever/internal/tabular"
)

func csvServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRowsOverResponse(t *testing.T) {
	server := csvServer(t, "h1,h2\n1,2\n3,4\n")
	client := newTestClient(t, Config{})

	cur, err := client.Rows(context.Background(), server.URL+"/data.csv", RequestOptions{}, tabular.Options{HeaderRow: 1})
	if err != nil {
		t.Fatalf("Rows() error: %v", err)
	}
	if got := cur.Headers(); !reflect.DeepEqual(got, []string{"h1", "h2"}) {
		t.Errorf("Headers() = %v", got)
	}
	rows, err := cur.All()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"1", "2"}, {"3", "4"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("All() = %v, want %v", rows, want)
	}
}

func TestSecondCursorOverSameResponse(t *testing.T) {
	server := csvServer(t, "h\n1\n2\n")
	client := newTestClient(t, Config{})

	resp, err := client.Request(context.Background(), server.URL, RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	first, err := resp.Rows(tabular.Options{HeaderRow: 1})
	if err != nil {
		t.Fatalf("first Rows() error: %v", err)
	}
	defer first.Close()

	if _, err := resp.Rows(tabular.Options{HeaderRow: 1}); !xerrors.IsState(err) {
		t.Errorf("second Rows() error = %v, want StateError", err)
	}
}

func TestCursorExhaustionClosesResponse(t *testing.T) {
	server := csvServer(t, "h\n1\n")
	client := newTestClient(t, Config{})

	resp, err := client.Request(context.Background(), server.URL, RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	cur, err := resp.Rows(tabular.Options{HeaderRow: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cur.All(); err != nil {
		t.Fatal(err)
	}
	if _, err := resp.Bytes(); !xerrors.IsState(err) {
		t.Errorf("Bytes() after cursor exhaustion error = %v, want StateError", err)
	}
}

func TestStreamingBlockedWhileCursorOpen(t *testing.T) {
	server := csvServer(t, "h\n1\n2\n")
	client := newTestClient(t, Config{})

	resp, err := client.Request(context.Background(), server.URL+"/data.csv", RequestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	cur, err := resp.Rows(tabular.Options{HeaderRow: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer cur.Close()

	if _, _, err := client.StreamToFile(server.URL+"/data.csv", FileDestination{Folder: t.TempDir()}); !xerrors.IsState(err) {
		t.Errorf("StreamToFile() with open cursor error = %v, want StateError", err)
	}
	if _, err := client.HashStream(server.URL + "/data.csv"); !xerrors.IsState(err) {
		t.Errorf("HashStream() with open cursor error = %v, want StateError", err)
	}
}

func TestRowsFormatFromContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/tab-separated-values")
		w.Write([]byte("a\tb\n1\t2\n"))
	}))
	defer server.Close()

	client := newTestClient(t, Config{})
	cur, err := client.Rows(context.Background(), server.URL, RequestOptions{}, tabular.Options{HeaderRow: 1})
	if err != nil {
		t.Fatal(err)
	}
	rows, err := cur.All()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rows, [][]string{{"1", "2"}}) {
		t.Errorf("rows = %v, want tab-delimited parse", rows)
	}
}
