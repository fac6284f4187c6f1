package urlvalidation

import (
	"errors"
	"testing"
)

func TestValidator_Validate(t *testing.T) {
	v := New([]string{"http://test/", "https://test/"})

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "http prefix", url: "http://test/file.xml", wantErr: false},
		{name: "https prefix", url: "https://test/file.xml", wantErr: false},
		{name: "ftp scheme", url: "ftp://test/test.xml", wantErr: true},
		{name: "other host", url: "https://other/test.xml", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidator_ErrorMessage(t *testing.T) {
	v := New([]string{"http://test/", "https://test/"})

	err := v.Validate("ftp://test/test.xml")

	var nwe *NotWhitelistedError
	if !errors.As(err, &nwe) {
		t.Fatalf("expected *NotWhitelistedError, got %T", err)
	}
	want := "URL 'ftp://test/test.xml' is not part of application's whitelisted urls: http://test/, https://test/"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestValidator_EmptyWhitelistAcceptsAll(t *testing.T) {
	for _, v := range []*Validator{nil, New(nil), New([]string{"", "  "})} {
		if v.Enabled() {
			t.Error("expected validator to be disabled")
		}
		if err := v.Validate("ftp://anything"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
}
