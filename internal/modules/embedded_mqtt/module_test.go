package embeddedmqtt

import (
	"context"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/packets"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewServerAllowAnonymous(t *testing.T) {
	server, err := newServer(zap.NewNop(), Config{AllowAnonymous: true})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	if server == nil {
		t.Fatalf("expected server")
	}
}

func TestNewServerRequiresAuthConfig(t *testing.T) {
	_, err := newServer(zap.NewNop(), Config{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestLedgerScopesACL(t *testing.T) {
	ledger := newLedger(Config{Username: "desk", Password: "pw", TopicBase: "lumen/v1/"})
	if len(ledger.ACL) != 1 {
		t.Fatalf("expected one acl rule")
	}
	access, ok := ledger.ACL[0].Filters["lumen/v1/#"]
	if !ok || access != auth.ReadWrite {
		t.Fatalf("expected read-write on lumen/v1/#, got %+v", ledger.ACL[0].Filters)
	}
	if _, ok := ledger.ACL[0].Filters["#"]; ok {
		t.Fatalf("acl must not grant the whole tree")
	}
}

func TestInlinePublishSubscribe(t *testing.T) {
	server, err := newServer(zap.NewNop(), Config{AllowAnonymous: true})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	received := make(chan packets.Packet, 1)
	handler := func(_ *mqtt.Client, _ packets.Subscription, pk packets.Packet) {
		received <- pk
	}
	if err := server.Subscribe("lumen/v1/#", 1, handler); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := server.Publish("lumen/v1/node/desk/presence", []byte("payload"), false, 0); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case pk := <-received:
		if string(pk.Payload) != "payload" {
			t.Fatalf("unexpected payload")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	mod, err := NewModule(zap.NewNop(), Config{Listen: "127.0.0.1:0", AllowAnonymous: true})
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mod.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("broker did not stop")
	}
}

func TestSlogHandlerHonoursLevel(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := newSlogLogger(zap.New(core))
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should be disabled at warn")
	}
	logger.Info("chatty")
	logger.Warn("listener slow", "listener", "tcp-embedded")
	logger.Error("read failed", "error", "EOF")
	entries := logs.All()
	if len(entries) != 1 || entries[0].Message != "listener slow" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].ContextMap()["listener"] != "tcp-embedded" {
		t.Fatalf("attrs should become fields")
	}
}

func TestBrokerURL(t *testing.T) {
	if BrokerURL("127.0.0.1:1883", false) != "mqtt://127.0.0.1:1883" {
		t.Fatalf("expected mqtt scheme")
	}
	if BrokerURL("127.0.0.1:8883", true) != "mqtts://127.0.0.1:8883" {
		t.Fatalf("expected mqtts scheme")
	}
}
