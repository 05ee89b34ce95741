package poller

import (
	"time"

	"github.com/littleandi/filehorizon/internal/domain"
	"github.com/littleandi/filehorizon/internal/protocol"
)

// Source is one configured discovery target, already resolved from
// config.FileSource/config.RemoteFileSource into protocol-neutral
// shape by the composition root.
type Source struct {
	Name                string
	Protocol            domain.Protocol
	Host                string
	Port                uint16
	Path                string
	Pattern             string
	Recursive           bool
	MinStableSeconds    time.Duration
	DestinationPathHint string
	DeleteAfterTransfer bool
	CronSpec            string
	PoolKey             protocol.PoolKey
}
