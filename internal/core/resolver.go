package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mikey-austin/lumen/internal/ports"
	"github.com/mikey-austin/lumen/pkg/lumen"
)

// HostKind is the presence kind announced by wallpaper hosts.
const HostKind = "wallpaper"

// Resolver resolves selectors to node presence.
type Resolver struct {
	Presence ports.Broker
	Config   Config
}

// ResolveHost resolves a host selector using the config default.
func (r Resolver) ResolveHost(ctx context.Context, selector string) (lumen.Presence, error) {
	return r.resolveByKind(ctx, selector, HostKind, r.Config.Defaults.Host)
}

func (r Resolver) resolveByKind(ctx context.Context, selector string, kind string, def string) (lumen.Presence, error) {
	if selector == "" {
		selector = def
	}

	presence, err := r.Presence.ListPresence(ctx)
	if err != nil {
		return lumen.Presence{}, WrapError(ExitRuntime, "list presence", err)
	}

	filtered := filterPresenceByKind(presence, kind)
	if selector == "" {
		switch len(filtered) {
		case 1:
			return filtered[0], nil
		case 0:
			return lumen.Presence{}, &CLIError{Code: ExitNotFound, Msg: "no wallpaper hosts online"}
		}
		return lumen.Presence{}, &CLIError{Code: ExitUsage, Msg: "host selector required: " + suggestionList(filtered)}
	}
	return resolveSelector(selector, filtered, r.Config.Aliases)
}

func filterPresenceByKind(presence []lumen.Presence, kind string) []lumen.Presence {
	if kind == "" {
		return presence
	}
	out := make([]lumen.Presence, 0, len(presence))
	for _, p := range presence {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

func resolveSelector(selector string, presence []lumen.Presence, aliases map[string]string) (lumen.Presence, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return lumen.Presence{}, &CLIError{Code: ExitUsage, Msg: "selector required"}
	}

	if strings.HasPrefix(selector, "lumen:") {
		return resolveExact(selector, presence)
	}

	if alias, ok := aliases[selector]; ok {
		if strings.HasPrefix(alias, "lumen:") {
			return resolveExact(alias, presence)
		}
		selector = alias
	}

	matches := make([]lumen.Presence, 0)
	for _, p := range presence {
		if strings.EqualFold(p.Name, selector) || strings.EqualFold(p.NodeID, selector) {
			matches = append(matches, p)
		}
	}

	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) == 0 {
		return lumen.Presence{}, &CLIError{Code: ExitNotFound, Msg: fmt.Sprintf("no match for %q", selector)}
	}
	return lumen.Presence{}, &CLIError{Code: ExitUsage, Msg: fmt.Sprintf("ambiguous selector %q: %s", selector, suggestionList(matches))}
}

func resolveExact(nodeID string, presence []lumen.Presence) (lumen.Presence, error) {
	for _, p := range presence {
		if p.NodeID == nodeID {
			return p, nil
		}
	}
	return lumen.Presence{}, &CLIError{Code: ExitNotFound, Msg: fmt.Sprintf("node not found: %s", nodeID)}
}

func suggestionList(matches []lumen.Presence) string {
	names := make([]string, 0, len(matches))
	for _, p := range matches {
		names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.NodeID))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
