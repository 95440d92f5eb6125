package hnsw

import (
	"fmt"
	"io"
	"strconv"
)

// LevelStats describes one level of the graph.
type LevelStats struct {
	Level          int
	Nodes          int
	Connections    int
	AvgConnections float64
}

// Stats is a snapshot of the graph structure.
type Stats struct {
	Options    map[string]string
	Parameters map[string]string
	Levels     []LevelStats
}

// Stats returns statistics about the HNSW graph.
// A node of level L counts toward every level 0..L.
func (h *HNSW) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := Stats{
		Options: map[string]string{
			"Dimension":      strconv.Itoa(h.dimension),
			"M":              strconv.Itoa(h.m),
			"EFConstruction": strconv.Itoa(h.efConstruction),
			"EFSearch":       strconv.Itoa(h.efSearch),
			"Pruning":        h.opts.Pruning.String(),
		},
		Parameters: map[string]string{
			"Nodes":      strconv.Itoa(len(h.nodes)),
			"MaxLevel":   strconv.Itoa(h.maxLevel),
			"EntryPoint": strconv.FormatUint(uint64(h.entryPoint), 10),
		},
		Levels: make([]LevelStats, h.maxLevel+1),
	}

	for l := range stats.Levels {
		stats.Levels[l].Level = l
	}

	for i := range h.nodes {
		for l, conns := range h.nodes[i].connections {
			stats.Levels[l].Nodes++
			stats.Levels[l].Connections += len(conns)
		}
	}

	for l := range stats.Levels {
		if stats.Levels[l].Nodes > 0 {
			stats.Levels[l].AvgConnections = float64(stats.Levels[l].Connections) / float64(stats.Levels[l].Nodes)
		}
	}

	return stats
}

// Print writes a human readable rendition of the statistics.
func (s Stats) Print(w io.Writer) {
	fmt.Fprintln(w, "Options:")
	for _, k := range []string{"Dimension", "M", "EFConstruction", "EFSearch", "Pruning"} {
		fmt.Fprintf(w, "\t%s = %s\n", k, s.Options[k])
	}

	fmt.Fprintln(w, "\nParameters:")
	for _, k := range []string{"Nodes", "MaxLevel", "EntryPoint"} {
		fmt.Fprintf(w, "\t%s = %s\n", k, s.Parameters[k])
	}

	fmt.Fprintln(w, "\nNode Levels:")
	for _, ls := range s.Levels {
		fmt.Fprintf(w, "\tLevel %d:\n", ls.Level)
		fmt.Fprintf(w, "\t\tNumber of nodes: %d\n", ls.Nodes)
		fmt.Fprintf(w, "\t\tNumber of connections: %d\n", ls.Connections)
		fmt.Fprintf(w, "\t\tAverage connections per node: %.2f\n", ls.AvgConnections)
	}
}
