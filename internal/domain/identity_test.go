package domain

import "testing"

func TestBuildIdentityKey_Local(t *testing.T) {
	ref := FileReference{Scheme: ProtocolLocal, Path: `C:\data\in\a.txt`}
	got := BuildIdentityKey(ref)
	want := "/C:/data/in/a.txt"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildIdentityKey_Idempotent(t *testing.T) {
	ref := FileReference{Scheme: ProtocolSFTP, Host: "Example.COM", Port: 22, Path: "/in/a.txt"}
	a := BuildIdentityKey(ref)
	b := BuildIdentityKey(ref)
	if a != b {
		t.Fatalf("BuildIdentityKey is not idempotent: %q != %q", a, b)
	}
}

func TestBuildIdentityKey_CaseInsensitiveHost(t *testing.T) {
	lower := FileReference{Scheme: ProtocolFTP, Host: "ftp.example.com", Port: 21, Path: "/a.txt"}
	upper := FileReference{Scheme: ProtocolFTP, Host: "FTP.EXAMPLE.COM", Port: 21, Path: "/a.txt"}
	if BuildIdentityKey(lower) != BuildIdentityKey(upper) {
		t.Fatalf("identity key must be case-insensitive over host")
	}
}

func TestBuildIdentityKey_NoPort(t *testing.T) {
	ref := FileReference{Scheme: ProtocolFTP, Host: "ftp.example.com", Path: "/a.txt"}
	got := BuildIdentityKey(ref)
	want := "ftp://ftp.example.com/a.txt"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
