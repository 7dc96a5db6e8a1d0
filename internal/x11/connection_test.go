package x11

import "testing"

func TestNewConnectionWithoutServer(t *testing.T) {
	t.Setenv("DISPLAY", "127.0.0.1:97")
	t.Setenv("XAUTHORITY", t.TempDir()+"/missing")
	if conn, err := NewConnection(); err == nil {
		conn.Close()
		t.Fatalf("expected connection error without an X server")
	}
}
