package reconciler

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/bigip"
	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/metrics"
)

// cleanupNodes deletes the partition's nodes that no pool member references
// anymore. The pool list is taken fresh and unfiltered so that iApp-owned
// pools keep their nodes alive too. A referenced node that an operator left
// administratively down is re-enabled on the way through.
func (e *Engine) cleanupNodes(logger zerolog.Logger, partition string, stats *Stats) error {
	nodes, err := e.adapter.Nodes(partition)
	if err != nil {
		return err
	}
	pools, err := e.adapter.PoolNames(partition)
	if err != nil {
		return err
	}

	unreferenced := make(map[string]bigip.NodeState, len(nodes))
	for _, node := range nodes {
		unreferenced[node.Name] = node
	}

	for _, pool := range pools {
		members, err := e.adapter.MemberKeys(partition, pool)
		if err != nil {
			return err
		}
		for _, member := range members {
			host, _, _ := strings.Cut(member, ":")
			node, ok := unreferenced[host]
			if !ok {
				continue
			}
			// The first reference claims the node.
			delete(unreferenced, host)

			if !memberNeedsEnable(node.State, node.Session) {
				continue
			}
			logger.Debug().Str("node", host).Msg("Re-enabling node")
			if err := e.adapter.EnableNode(partition, host); err != nil {
				return err
			}
			metrics.OperationsTotal.WithLabelValues("node", "update").Inc()
		}
	}

	for _, node := range nodes {
		if _, ok := unreferenced[node.Name]; !ok {
			continue
		}
		logger.Debug().Str("node", node.Name).Msg("Deleting unreferenced node")
		if err := e.adapter.DeleteNode(partition, node.Name); err != nil {
			return err
		}
		metrics.OperationsTotal.WithLabelValues("node", "delete").Inc()
		stats.NodesDeleted++
	}

	return nil
}
