package router

import (
	"testing"

	"github.com/littleandi/filehorizon/internal/config"
	"github.com/littleandi/filehorizon/internal/domain"
)

func TestRoute_FirstMatchWins(t *testing.T) {
	cfg := config.Routing{Rules: []config.RoutingRule{
		{
			Match:        config.RoutingMatch{Protocol: "local"},
			Destinations: []config.RoutingDestination{{Name: "archive"}},
		},
		{
			Match:        config.RoutingMatch{},
			Destinations: []config.RoutingDestination{{Name: "catch-all"}},
		},
	}}
	r := New(cfg)
	plans, policy := r.Route(domain.FileEvent{
		Protocol: domain.ProtocolLocal,
		Metadata: domain.EventMetadata{SourcePath: "/tmp/in/a.txt"},
	})
	if len(plans) != 1 || plans[0].DestinationName != "archive" {
		t.Fatalf("got %+v, want single archive plan", plans)
	}
	if policy != domain.FailurePolicyAllOrNothing {
		t.Fatalf("got %v, want AllOrNothing default", policy)
	}
}

func TestRoute_NoMatchIsLegalEmptyPlan(t *testing.T) {
	r := New(config.Routing{Rules: []config.RoutingRule{
		{Match: config.RoutingMatch{Protocol: "sftp"}, Destinations: []config.RoutingDestination{{Name: "x"}}},
	}})
	plans, _ := r.Route(domain.FileEvent{Protocol: domain.ProtocolLocal})
	if len(plans) != 0 {
		t.Fatalf("got %+v, want empty plan", plans)
	}
}

func TestRoute_BestEffortPolicyPropagates(t *testing.T) {
	r := New(config.Routing{Rules: []config.RoutingRule{
		{
			Match:         config.RoutingMatch{},
			Destinations:  []config.RoutingDestination{{Name: "a"}, {Name: "b"}},
			FailurePolicy: "BestEffort",
		},
	}})
	plans, policy := r.Route(domain.FileEvent{Metadata: domain.EventMetadata{SourcePath: "/tmp/in/a.txt"}})
	if len(plans) != 2 {
		t.Fatalf("got %d plans, want 2", len(plans))
	}
	if policy != domain.FailurePolicyBestEffort {
		t.Fatalf("got %v, want BestEffort", policy)
	}
}

func TestRoute_RenamePattern(t *testing.T) {
	r := New(config.Routing{Rules: []config.RoutingRule{
		{
			Match:        config.RoutingMatch{},
			Destinations: []config.RoutingDestination{{Name: "archive", RenamePattern: "/archive/*.bak"}},
		},
	}})
	plans, _ := r.Route(domain.FileEvent{Metadata: domain.EventMetadata{SourcePath: "/tmp/in/a.txt"}})
	if plans[0].TargetPath != "/archive/a.txt.bak" {
		t.Fatalf("got %q", plans[0].TargetPath)
	}
}
