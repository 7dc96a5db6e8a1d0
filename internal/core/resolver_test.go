package core

import (
	"context"
	"testing"

	"github.com/mikey-austin/lumen/pkg/lumen"
)

type fakeBroker struct {
	presence []lumen.Presence
}

func (f fakeBroker) ReplyTopic() string { return "" }
func (f fakeBroker) PublishCommand(ctx context.Context, nodeID string, cmd lumen.CommandEnvelope) (lumen.ReplyEnvelope, error) {
	return lumen.ReplyEnvelope{}, nil
}
func (f fakeBroker) ListPresence(ctx context.Context) ([]lumen.Presence, error) {
	return f.presence, nil
}
func (f fakeBroker) GetHostState(ctx context.Context, nodeID string) (lumen.HostState, error) {
	return lumen.HostState{}, nil
}
func (f fakeBroker) WatchHost(ctx context.Context, nodeID string) (<-chan lumen.HostState, <-chan error) {
	stateCh := make(chan lumen.HostState)
	errCh := make(chan error)
	close(stateCh)
	close(errCh)
	return stateCh, errCh
}

func TestResolverAlias(t *testing.T) {
	presence := []lumen.Presence{{NodeID: "lumen:host:desk", Kind: HostKind, Name: "Desk"}}
	resolver := Resolver{
		Presence: fakeBroker{presence: presence},
		Config: Config{
			Aliases: map[string]string{"office": "lumen:host:desk"},
		},
	}
	got, err := resolver.ResolveHost(context.Background(), "office")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.NodeID != "lumen:host:desk" {
		t.Fatalf("expected alias resolution")
	}
}

func TestResolverSingleHostIsDefault(t *testing.T) {
	presence := []lumen.Presence{
		{NodeID: "lumen:host:desk", Kind: HostKind, Name: "Desk"},
		{NodeID: "other:node", Kind: "renderer", Name: "Speaker"},
	}
	resolver := Resolver{Presence: fakeBroker{presence: presence}}
	got, err := resolver.ResolveHost(context.Background(), "")
	if err != nil || got.NodeID != "lumen:host:desk" {
		t.Fatalf("expected the only host, got %+v %v", got, err)
	}
}

func TestResolverNoHosts(t *testing.T) {
	resolver := Resolver{Presence: fakeBroker{}}
	_, err := resolver.ResolveHost(context.Background(), "")
	if ExitCode(err) != ExitNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = resolver.ResolveHost(context.Background(), "lumen:host:gone")
	if ExitCode(err) != ExitNotFound {
		t.Fatalf("expected not found for exact id, got %v", err)
	}
}

func TestResolverAmbiguous(t *testing.T) {
	presence := []lumen.Presence{
		{NodeID: "lumen:host:one", Kind: HostKind, Name: "Wallpaper Host"},
		{NodeID: "lumen:host:two", Kind: HostKind, Name: "Wallpaper Host"},
	}
	resolver := Resolver{Presence: fakeBroker{presence: presence}}
	_, err := resolver.ResolveHost(context.Background(), "Wallpaper Host")
	if ExitCode(err) != ExitUsage {
		t.Fatalf("expected ambiguous error, got %v", err)
	}
	_, err = resolver.ResolveHost(context.Background(), "")
	if ExitCode(err) != ExitUsage {
		t.Fatalf("expected selector required, got %v", err)
	}
}
