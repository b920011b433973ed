package pagination

import (
	"errors"
	"net/http"
	"net/url"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	pager, err := Parse(url.Values{}, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if pager.PageSize != DefaultPageSize {
		t.Fatalf("expected default page size %d got %d", DefaultPageSize, pager.PageSize)
	}
	if pager.PageToken != "" {
		t.Fatalf("expected empty page token got %q", pager.PageToken)
	}
}

func TestParsePageSize(t *testing.T) {
	opts := Options{DefaultPageSize: 25, MaxPageSize: 40}
	values := url.Values{}
	values.Set("pageSize", "30")

	pager, err := Parse(values, opts)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if pager.PageSize != 30 {
		t.Fatalf("expected page size 30 got %d", pager.PageSize)
	}

	values.Set("pageSize", "400")
	pager, err = Parse(values, opts)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if pager.PageSize != opts.MaxPageSize {
		t.Fatalf("expected page size clamped to %d got %d", opts.MaxPageSize, pager.PageSize)
	}
}

func TestParseInvalidPageSize(t *testing.T) {
	values := url.Values{}
	values.Set("pageSize", "abc")

	if _, err := Parse(values, Options{}); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}

	values.Set("pageSize", "0")
	if _, err := Parse(values, Options{}); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize for zero, got %v", err)
	}
}

func TestParsePageTokenRoundTrip(t *testing.T) {
	token, err := EncodeToken(Cursor{LastID: "ord_01ABC"})
	if err != nil {
		t.Fatalf("EncodeToken returned error: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	values := url.Values{}
	values.Set("pageToken", token)

	pager, err := Parse(values, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if pager.PageToken != token {
		t.Fatalf("expected token preserved, got %q", pager.PageToken)
	}

	cursor, err := DecodeToken(pager.PageToken)
	if err != nil {
		t.Fatalf("DecodeToken returned error: %v", err)
	}
	if cursor.LastID != "ord_01ABC" {
		t.Fatalf("expected lastId ord_01ABC, got %q", cursor.LastID)
	}
}

func TestParseInvalidPageToken(t *testing.T) {
	values := url.Values{}
	values.Set("pageToken", "%%%not-base64%%%")

	if _, err := Parse(values, Options{}); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func TestEncodeTokenEmptyCursor(t *testing.T) {
	token, err := EncodeToken(Cursor{})
	if err != nil {
		t.Fatalf("EncodeToken returned error: %v", err)
	}
	if token != "" {
		t.Fatalf("expected empty token for zero cursor, got %q", token)
	}
}

func TestFromRequest(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "/orders?pageSize=10", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	pager, err := FromRequest(r, Options{MaxPageSize: 20})
	if err != nil {
		t.Fatalf("FromRequest returned error: %v", err)
	}
	if pager.PageSize != 10 {
		t.Fatalf("expected page size 10, got %d", pager.PageSize)
	}
}
