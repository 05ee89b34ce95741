// Package router maps a FileEvent to zero or more DestinationPlans
// using first-match-wins rule evaluation over the configured routing
// table.
package router

import (
	"path"
	"strings"

	"github.com/littleandi/filehorizon/internal/config"
	"github.com/littleandi/filehorizon/internal/domain"
)

type rule struct {
	protocol      string
	sourceName    string
	pathPattern   string
	destinations  []config.RoutingDestination
	failurePolicy domain.FailurePolicy
}

// Router evaluates the configured rule set in order.
type Router struct {
	rules []rule
}

func New(cfg config.Routing) *Router {
	r := &Router{}
	for _, rr := range cfg.Rules {
		r.rules = append(r.rules, rule{
			protocol:      rr.Match.Protocol,
			sourceName:    rr.Match.SourceName,
			pathPattern:   rr.Match.PathPattern,
			destinations:  rr.Destinations,
			failurePolicy: domain.FailurePolicy(rr.FailurePolicy),
		})
	}
	return r
}

// Route returns the ordered plans for event and the failure policy of
// the rule that matched. An empty plan list is legal: the event is a
// no-op.
func (r *Router) Route(event domain.FileEvent) ([]domain.DestinationPlan, domain.FailurePolicy) {
	for _, rl := range r.rules {
		if !rl.matches(event) {
			continue
		}
		plans := make([]domain.DestinationPlan, 0, len(rl.destinations))
		for _, d := range rl.destinations {
			plans = append(plans, domain.DestinationPlan{
				DestinationName: d.Name,
				TargetPath:      targetPath(event, d.RenamePattern),
				WriteOptions: domain.WriteOptions{
					Overwrite:     d.Overwrite,
					ComputeHash:   d.ComputeHash,
					RenamePattern: d.RenamePattern,
				},
				IsTopic: d.IsTopic,
			})
		}
		policy := rl.failurePolicy
		if policy == "" {
			policy = domain.FailurePolicyAllOrNothing
		}
		return plans, policy
	}
	return nil, domain.FailurePolicyAllOrNothing
}

func (rl rule) matches(event domain.FileEvent) bool {
	if rl.protocol != "" && !strings.EqualFold(rl.protocol, string(event.Protocol)) {
		return false
	}
	if rl.sourceName != "" {
		if ok, _ := path.Match(rl.sourceName, event.SourceName); !ok {
			return false
		}
	}
	if rl.pathPattern != "" {
		if ok, _ := path.Match(rl.pathPattern, event.Metadata.SourcePath); !ok {
			return false
		}
	}
	return true
}

// targetPath applies an optional rename pattern (a filepath.Match-style
// template containing the literal token "*" replaced by the source
// file's base name) or falls back to the event's destination path hint.
func targetPath(event domain.FileEvent, renamePattern string) string {
	base := path.Base(event.Metadata.SourcePath)
	if renamePattern == "" {
		if event.DestinationPathHint != "" {
			return path.Join(event.DestinationPathHint, base)
		}
		return base
	}
	return strings.ReplaceAll(renamePattern, "*", base)
}
