package extraction

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"gradlist/internal"
	"gradlist/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testClient(t *testing.T, status int, body string) *Client {
	t.Helper()
	cfg, _ := config.Load()
	cfg.ExtractAPIBaseURL = "https://backend.test"
	cfg.ExtractAPIToken = "test-token"

	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/extract" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer test-token" {
				t.Fatalf("missing bearer token")
			}
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     make(http.Header),
			}, nil
		}),
	}
	return client
}

func TestExtractFromTextSuccess(t *testing.T) {
	client := testClient(t, http.StatusOK, `{"success":true,"names":["王小明","張*睿"],"names_available":true}`)
	res, err := client.ExtractFromText(context.Background(), "甲大學資工系碩士班", "some page text")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || len(res.Names) != 2 || !res.HasNames {
		t.Fatalf("res=%+v", res)
	}
}

func TestExtractNamesAvailableFalse(t *testing.T) {
	client := testClient(t, http.StatusOK, `{"success":true,"names":["1","2","3"],"names_available":false}`)
	res, err := client.ExtractFromText(context.Background(), "target", "text")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.HasNames {
		t.Fatalf("res=%+v", res)
	}
}

func TestExtractBackendRejection(t *testing.T) {
	client := testClient(t, http.StatusOK, `{"success":false,"reason":"document covers a different department"}`)
	res, err := client.ExtractFromText(context.Background(), "target", "text")
	if err != nil {
		t.Fatalf("rejection must not be an error: %v", err)
	}
	if res.Success || res.FailureReason != "document covers a different department" {
		t.Fatalf("res=%+v", res)
	}
}

func TestExtractEmptyResponse(t *testing.T) {
	client := testClient(t, http.StatusOK, "  \n ")
	_, err := client.ExtractFromText(context.Background(), "target", "text")
	if Kind(err) != internal.FailEmptyResponse {
		t.Fatalf("err=%v", err)
	}
}

func TestExtractMarkdownFencedJSON(t *testing.T) {
	body := "```json\n{\"success\":true,\"names\":[\"王小明\"],\"names_available\":true}\n```"
	client := testClient(t, http.StatusOK, body)
	res, err := client.ExtractFromText(context.Background(), "target", "text")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Names[0] != "王小明" {
		t.Fatalf("res=%+v", res)
	}
}

func TestExtractRawNewlineInString(t *testing.T) {
	// A raw control character inside a JSON string is invalid JSON until
	// sanitized.
	body := "{\"success\":true,\"names\":[\"王\n小明\"],\"names_available\":true}"
	client := testClient(t, http.StatusOK, body)
	res, err := client.ExtractFromText(context.Background(), "target", "text")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || len(res.Names) != 1 {
		t.Fatalf("res=%+v", res)
	}
}

func TestExtractMalformedShapes(t *testing.T) {
	cases := []string{
		`no json here at all`,
		`{"names":["a"]}`,
		`{"success":true}`,
	}
	for _, body := range cases {
		client := testClient(t, http.StatusOK, body)
		_, err := client.ExtractFromText(context.Background(), "target", "text")
		if Kind(err) != internal.FailMalformedResponse {
			t.Fatalf("body=%q err=%v", body, err)
		}
	}
}

func TestExtractTransportFailure(t *testing.T) {
	client := testClient(t, http.StatusBadGateway, `upstream broke`)
	_, err := client.ExtractFromText(context.Background(), "target", "text")
	if Kind(err) != internal.FailTransport {
		t.Fatalf("err=%v", err)
	}
}

func TestExtractFromFileScannedPDF(t *testing.T) {
	client := testClient(t, http.StatusOK, `{"success":true,"names":[],"names_available":true}`)
	_, err := client.ExtractFromFile(context.Background(), "target", "scan.pdf", []byte("not a real pdf"))
	if Kind(err) != internal.FailNoTextLayer {
		t.Fatalf("err=%v", err)
	}
}
